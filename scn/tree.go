package scn

import (
	"github.com/pkg/errors"

	"github.com/mogaika/scn_browser/config"
)

// SkipSceneTree walks the self-describing node tree that both container
// families store right after the magic:
//
//	node := name_cstr + blob[0x40] + u32 flag1 + (flag1==1 ? node) +
//	        u32 flag2 + (flag2==1 ? node)
//
// Nothing from the tree is retained; the only purpose is to locate the
// offset where the following sections begin. Recursion is capped so corrupt
// input cannot blow the stack.
func SkipSceneTree(data []byte, start int) (int, error) {
	r := NewReaderAt(data, start)
	if err := skipSceneNode(r, 0); err != nil {
		return 0, errors.Wrapf(ErrMalformed, "scene tree: %v", err)
	}
	return r.Tell(), nil
}

func skipSceneNode(r *Reader, depth int) error {
	if depth > config.GetTunables().MaxTreeDepth {
		return errors.Errorf("node depth %d over limit", depth)
	}

	if _, err := r.CString(); err != nil {
		return err
	}
	if err := r.Skip(0x40); err != nil {
		return err
	}

	flag1, err := r.U32()
	if err != nil {
		return err
	}
	if flag1 == 1 {
		if err := skipSceneNode(r, depth+1); err != nil {
			return err
		}
	}

	flag2, err := r.U32()
	if err != nil {
		return err
	}
	if flag2 == 1 {
		if err := skipSceneNode(r, depth+1); err != nil {
			return err
		}
	}
	return nil
}
