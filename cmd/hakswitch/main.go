// Command hakswitch is a read-only inspection tool for Nintendo Switch
// content-distribution formats: PFS0/NSP, HFS0, XCI, SARC, BNTX, BFTTF,
// NCA, and NPDM. It never writes or re-encodes any of these formats.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/falk/hakswitch/pkg/bfttf"
	"github.com/falk/hakswitch/pkg/bntx"
	"github.com/falk/hakswitch/pkg/hakerr"
	"github.com/falk/hakswitch/pkg/hfs0"
	"github.com/falk/hakswitch/pkg/keyset"
	"github.com/falk/hakswitch/pkg/nca"
	"github.com/falk/hakswitch/pkg/ncacrypto"
	"github.com/falk/hakswitch/pkg/npdm"
	"github.com/falk/hakswitch/pkg/pfs0"
	"github.com/falk/hakswitch/pkg/sarc"
	"github.com/falk/hakswitch/pkg/xci"
)

func main() {
	keysPath := flag.String("k", "", "path to prod.keys (required for dump-nca)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Println("usage: hakswitch [-k prod.keys] <inspect|dump-nca> <file>")
		os.Exit(1)
	}

	command, path := args[0], args[1]

	switch command {
	case "inspect":
		if err := inspect(path); err != nil {
			fmt.Printf("inspect failed: %v\n", err)
			os.Exit(1)
		}
	case "dump-nca":
		if *keysPath == "" {
			fmt.Println("dump-nca requires -k prod.keys")
			os.Exit(1)
		}
		if err := dumpNca(path, *keysPath); err != nil {
			fmt.Printf("dump-nca failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("unknown command %q\n", command)
		os.Exit(1)
	}
}

// inspect sniffs the file's magic and prints a listing for whichever
// container format matches.
func inspect(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return hakerr.Wrap(err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return hakerr.Wrap(err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return hakerr.Wrap(err)
	}

	switch string(magic) {
	case "PFS0":
		p, err := pfs0.Parse(f)
		if err != nil {
			return err
		}
		fmt.Printf("PFS0: %d files\n", len(p.Files))
		for _, file := range p.Files {
			fmt.Printf("  %-40s offset=%#x size=%d\n", file.Name, file.Offset, file.Size)
		}
	case "HFS0":
		h, err := hfs0.Parse(f)
		if err != nil {
			return err
		}
		fmt.Printf("HFS0: %d files\n", len(h.Files))
		for _, file := range h.Files {
			fmt.Printf("  %-40s offset=%#x size=%d hashed=%d\n", file.Name, file.Offset, file.Size, file.HashedSize)
		}
	case "SARC":
		s, err := sarc.Parse(f)
		if err != nil {
			return err
		}
		fmt.Printf("SARC: version=%#x multiplier=%d %d files\n", s.Version, s.HashMultiplier, len(s.Files))
		for _, file := range s.Files {
			fmt.Printf("  %-40s hash=%#08x size=%d\n", file.Name, file.Hash, file.Size())
		}
	case "BNTX":
		b, err := bntx.Parse(f)
		if err != nil {
			return err
		}
		fmt.Printf("BNTX: %d textures\n", b.TextureCount)
		for _, tex := range b.Textures {
			fmt.Printf("  %-30s %dx%d mips=%d format=%#x\n", tex.Name, tex.Width, tex.Height, tex.MipmapCount, tex.Format)
		}
	case "META":
		n, err := npdm.Parse(f)
		if err != nil {
			return err
		}
		fmt.Printf("NPDM: title=%q product=%q 64bit=%v programId=%016X\n", n.TitleName, n.ProductCode, n.Is64Bit, n.Aci.ProgramID)
	default:
		// XCI has no magic at offset 0 (its "HEAD" magic is at 0x1100) and
		// BFTTF has no magic at all, so they're tried as fallbacks.
		if x, err := xci.Parse(f); err == nil {
			fmt.Printf("XCI: capacity=%s package=%016X root partitions=%d\n", x.RomCapacity(), x.PackageID, len(x.RootPartition.Files))
			return nil
		}
		if _, err := f.Seek(0, 0); err != nil {
			return hakerr.Wrap(err)
		}
		data, err := readAll(f)
		if err != nil {
			return err
		}
		if font, err := bfttf.Parse(data); err == nil {
			fmt.Printf("BFTTF/BFOTF: platform=%v %d bytes encrypted\n", font.Platform, len(data))
			return nil
		}
		return hakerr.New(hakerr.BadMagic)
	}
	return nil
}

func readAll(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, hakerr.Wrap(err)
	}
	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, hakerr.Wrap(err)
	}
	return buf, nil
}

// dumpNca decrypts an NCA's header with the given prod.keys and prints its
// fields, mirroring the minimal decrypt-then-parse flow of a standalone
// NCA inspection script.
func dumpNca(path, keysPath string) error {
	keysFile, err := os.Open(keysPath)
	if err != nil {
		return hakerr.Wrap(err)
	}
	defer keysFile.Close()

	ks := keyset.New()
	if err := ks.LoadProdKeys(keysFile); err != nil {
		return err
	}
	if ks.HeaderKey == nil {
		return hakerr.Parsef("prod.keys has no header_key entry")
	}
	var headerKey [32]byte
	copy(headerKey[:], ks.HeaderKey)

	f, err := os.Open(path)
	if err != nil {
		return hakerr.Wrap(err)
	}
	defer f.Close()

	encrypted := make([]byte, ncacrypto.HeaderSize)
	if _, err := io.ReadFull(f, encrypted); err != nil {
		return hakerr.Wrap(err)
	}

	plaintext := ncacrypto.DecryptHeader(encrypted, &headerKey)

	r := bytes.NewReader(plaintext[:])
	n, err := nca.Parse(r)
	if err != nil {
		return err
	}

	fmt.Printf("program id: %016X\n", n.ProgramID)
	fmt.Printf("version: NCA%d\n", n.Version)
	fmt.Printf("content type: %d\n", n.ContentType)
	fmt.Printf("content size: %d\n", n.ContentSize)
	fmt.Printf("key generation: %d\n", n.KeyGeneration)
	fmt.Printf("uses titlekey crypto: %v\n", n.UsesTitlekeyCrypto())
	return nil
}
