// Package winconsole keeps child processes from flashing console windows on
// Windows.
//
// Spawning a subprocess from a GUI-launched parent on Windows allocates a new
// console unless the process is created with the CREATE_NO_WINDOW flag, so
// every background command the app runs (git, probes, taskkill) briefly pops a
// black window. Hide records that flag on a command builder before it is
// spawned. On every other platform the package is a no-op, which lets call
// sites stay identical across operating systems.
//
// Hide only ORs the flag into the builder's existing creation-flags mask;
// caller-set bits survive. A caller that assigns SysProcAttr wholesale after
// calling Hide clobbers the effect, so apply Hide after any other SysProcAttr
// configuration.
package winconsole
