package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	ds "github.com/ranmrdrakono/memspace/data_structures"
	loader "github.com/ranmrdrakono/memspace/loader/elf"
)

const (
	// Trampoline occupies the highest virtual page; the trap context
	// sits immediately below it.
	trampolineVA = ^uint64(0) - ds.PageSize + 1
	trapCtxVA    = trampolineVA - ds.PageSize
	// Physical location of the shared trampoline code, inside the
	// kernel image and outside the frame pool.
	trampolinePA = 0x8020_0000

	userStackSize = 8 * ds.PageSize
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <elf>\n", os.Args[0])
		os.Exit(1)
	}
	image, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.WithFields(log.Fields{"error": err}).Fatal("Error reading image")
	}
	space, sp, entry, lerr := loader.LoadProgram(image, trampolineVA, trampolinePA, trapCtxVA, userStackSize)
	if lerr != nil {
		log.WithFields(log.Fields{"error": lerr, "stack": lerr.ErrorStack()}).Fatal("Error loading image")
	}
	space.Activate()
	fmt.Printf("entry: %#x\n", entry)
	fmt.Printf("stack pointer: %#x\n", sp)
	fmt.Printf("token: %#x\n", space.Token())
}
