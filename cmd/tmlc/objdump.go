package main

import (
	"debug/elf"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// disassembleObject is a teaching/debugging aid: it
// decodes the .text section of an ELF object produced by `tmlc build` and
// prints one x86asm instruction per line. Not part of the linker contract.
func disassembleObject(path string) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("opening object: %w", err)
	}
	defer f.Close()

	text := f.Section(".text")
	if text == nil {
		return fmt.Errorf("no .text section in %s", path)
	}
	code, err := text.Data()
	if err != nil {
		return fmt.Errorf("reading .text: %w", err)
	}

	mode := 64
	if f.Class == elf.ELFCLASS32 {
		mode = 32
	}

	addr := text.Addr
	for len(code) > 0 {
		inst, err := x86asm.Decode(code, mode)
		if err != nil {
			fmt.Printf("%#x: <bad instruction: %v>\n", addr, err)
			code = code[1:]
			addr++
			continue
		}
		fmt.Printf("%#x: %s\n", addr, x86asm.GNUSyntax(inst, addr, nil))
		code = code[inst.Len:]
		addr += uint64(inst.Len)
	}
	return nil
}
