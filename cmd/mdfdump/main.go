// Package main provides a command-line utility for inspecting MDF 4.1x
// files: a raw hex dump at a given offset, or a walk of the block graph
// printing each block's id, offset, and key fields.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/scigolib/mdf4/internal/core"
)

func main() {
	offset := flag.Int64("offset", 0, "Offset in file to start dumping from")
	length := flag.Int("length", 128, "Number of bytes to dump")
	blocks := flag.Bool("blocks", false, "Walk and print the block graph instead of a hex dump")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: mdfdump [flags] <file.mf4>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		return
	}

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open file: %v", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Failed to close file: %v", err)
		}
	}()

	if *blocks {
		if err := walkBlocks(f); err != nil {
			log.Fatalf("Failed to walk block graph: %v", err)
		}
		return
	}

	fileInfo, err := f.Stat()
	if err != nil {
		log.Fatalf("Failed to get file info: %v", err)
	}
	fileSize := fileInfo.Size()

	if *offset < 0 || *offset >= fileSize {
		log.Fatalf("Invalid offset: %d (file size: %d)", *offset, fileSize)
	}
	if *length < 1 {
		log.Fatalf("Invalid length: %d", *length)
	}

	remaining := fileSize - *offset
	readLength := int64(*length)
	if readLength > remaining {
		readLength = remaining
		fmt.Printf("Warning: requested length %d exceeds available bytes (%d). Dumping %d bytes.\n",
			*length, remaining, readLength)
	}

	buf := make([]byte, readLength)
	n, err := f.ReadAt(buf, *offset)
	if err != nil {
		log.Printf("Read error: %v (read %d of %d bytes)", err, n, readLength)
	}

	fmt.Printf("Dumping %d bytes at offset 0x%x (%d) of %s (size: %d bytes):\n",
		n, *offset, *offset, path, fileSize)
	hexDump(buf[:n], *offset)
}

func hexDump(buf []byte, base int64) {
	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		chunk := buf[i:end]

		fmt.Printf("%08x: ", base+int64(i))
		for j := 0; j < 16; j++ {
			if j < len(chunk) {
				fmt.Printf("%02x ", chunk[j])
			} else {
				fmt.Print("   ")
			}
			if j == 7 {
				fmt.Print(" ")
			}
		}
		fmt.Print(" |")
		for _, b := range chunk {
			if b >= 32 && b <= 126 {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}
		fmt.Println("|")
	}
}

func walkBlocks(f *os.File) error {
	ident, err := core.ReadIdentification(f)
	if err != nil {
		return err
	}
	fmt.Printf("identification: file_id=%q format=%q program=%q version=%d\n", ident.FileID, ident.FormatID, ident.Program, ident.VersionCode)

	hd, err := core.ParseHD(f, core.IdentificationSize)
	if err != nil {
		return err
	}
	fmt.Printf("##HD @0x%x\n", core.IdentificationSize)

	return core.WalkDGs(f, hd.FirstDGLink, func(dgOffset uint64, dg *core.DG) error {
		fmt.Printf("  ##DG @0x%x record_id_len=%d\n", dgOffset, dg.RecordIDLen)
		return core.WalkCGs(f, dg.FirstCGLink, func(cgOffset uint64, cg *core.CG) error {
			fmt.Printf("    ##CG @0x%x record_count=%d record_bytes=%d\n", cgOffset, cg.RecordCount, cg.RecordBytes)
			return core.WalkCNs(f, cg.FirstCNLink, func(cnOffset uint64, cn *core.CN) error {
				name, _ := core.ReadText(f, cn.NameLink)
				fmt.Printf("      ##CN @0x%x name=%q type=%d byte_offset=%d bit_count=%d\n", cnOffset, name, cn.DataType, cn.ByteOffset, cn.BitCount)
				return nil
			})
		})
	})
}
