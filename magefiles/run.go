//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Renders the built-in demo scene to frame.bmp.
func (Run) Demo() error {
	mg.Deps(Build.Binary)
	fmt.Println("Run demo...")
	if _, err := executeCmd("bin/resolvepipe", withArgs("-out", "frame.bmp", "-frames", "10"), withStream()); err != nil {
		return err
	}
	return nil
}

// Renders the sample scene with the sample config and reloads both on change
// until interrupted.
func (Run) Watch() error {
	mg.Deps(Build.Binary)
	_, err := executeCmd("bin/resolvepipe",
		withArgs("-config", "assets/resolvepipe.toml", "-scene", "assets/demo.scene.toml", "-frames", "0", "-watch", "-out", "frame.tiff"),
		withStream())
	return err
}
