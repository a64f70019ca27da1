//go:build mage
// +build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/maestrodesk/app/mage"
)

var cfg = mage.NewBuildConfig()

// Displays the current build configuration
func ShowConfig() {
	mage.PrettyPrint(cfg)
}

var Aliases = map[string]interface{}{
	"build": Build.App,
	"test":  Test.Backend,
	"vet":   QC.Vet,
	"clean": Clean.Build,
}

type Build mg.Namespace

// Builds the application with wails
func (Build) App() error {
	return sh.RunV("wails", cfg.BuildArgs...)
}

// Runs the application in wails dev mode
func (Build) Dev() error {
	return sh.RunV("wails", "dev")
}

type Test mg.Namespace

// Runs the backend test suite
func (Test) Backend() error {
	return sh.RunV("go", "test", "./...")
}

// Runs the backend test suite with the race detector
func (Test) Race() error {
	return sh.RunV("go", "test", "-race", "./...")
}

type QC mg.Namespace

// Runs go vet over the module
func (QC) Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Checks gofmt compliance
func (QC) Fmt() error {
	return sh.RunV("gofmt", "-l", ".")
}

type Clean mg.Namespace

// Removes build outputs
func (Clean) Build() error {
	return sh.Rm(cfg.BuildDir)
}
