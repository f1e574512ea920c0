package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mogaika/scn_browser/axo"
)

func dumpFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	f, err := axo.Parse(b)
	if err != nil {
		return err
	}

	fmt.Printf("[axo] version=%d unk24=0x%08X unk28=0x%08X\n",
		f.Header.Version, f.Header.Unk24, f.Header.Unk28)

	for i, c := range f.Chunks {
		fmt.Printf("[axo] chunk[%d] off=0x%X tag=%q size=0x%X count=%d unkC=0x%X\n",
			i, c.Offset, c.Tag4(), c.Size, c.Count, c.UnkC)
	}
	for i, t := range f.Textures {
		fmt.Printf("[axo]   tex[%d] id=%d name=%q\n", i, t.Id, t.Name)
	}
	for i, m := range f.Materials {
		fmt.Printf("[axo]   mtrl[%d] key=%d texId=%d unk4=%d\n", i, m.Key, m.TexId, m.Unk4)
	}
	for i, kid := range f.GeogKids {
		fmt.Printf("[axo]   geog[%d] off=0x%X tag=%q size=0x%X count=%d unkC=0x%X\n",
			i, kid.Offset, kid.Tag4(), kid.Size, kid.Count, kid.UnkC)
		if hdr, ok := f.GeomHdrs[kid.Offset]; ok {
			parts := make([]string, len(hdr))
			for j, v := range hdr {
				parts[j] = fmt.Sprintf("unk%02X=0x%X", j*4, v)
			}
			fmt.Printf("[axo]     geom.hdr %s\n", strings.Join(parts, " "))
		}
	}
	for i, rec := range f.Atoms {
		fmt.Printf("[axo] atom[%d] geom=%d mtrl=%d fram=%d\n",
			i, rec["GEOM"], rec["MTRL"], rec["FRAM"])
		if m, ok := f.MaterialByKey(rec["MTRL"]); ok {
			if t, ok := f.TextureById(m.TexId); ok {
				fmt.Printf("[axo]   -> texId=%d name=%q\n", m.TexId, t.Name)
			}
		}
	}
	for _, issue := range f.Validate() {
		fmt.Printf("[axo] BAD atom[%d]: %s\n", issue.Atom, issue.Problem)
	}
	return nil
}

func main() {
	var validateDir string
	flag.StringVar(&validateDir, "validate", "", "validate all .axo files under directory instead of dumping")
	flag.Parse()

	if validateDir != "" {
		total, bad := 0, 0
		err := filepath.Walk(validateDir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".axo") {
				return err
			}
			total++
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			f, err := axo.Parse(b)
			if err != nil {
				log.Printf("%s: %v", path, err)
				return nil
			}
			for _, issue := range f.Validate() {
				bad++
				log.Printf("[bad] %s atom[%d]: %s", path, issue.Atom, issue.Problem)
			}
			return nil
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("[axodump] checked=%d bad=%d\n", total, bad)
		return
	}

	if flag.NArg() == 0 {
		log.Fatal("usage: axodump [-validate dir] file.axo ...")
	}
	for _, path := range flag.Args() {
		if err := dumpFile(path); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
}
