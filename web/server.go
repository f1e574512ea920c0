// Package web serves decoded scenes over a small JSON/export HTTP API.
package web

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/mogaika/scn_browser/scn"
	"github.com/mogaika/scn_browser/scn/mesh"
)

// sceneStore lazily decodes containers from the served directory, keeping
// results for repeated requests.
type sceneStore struct {
	root string
	opts mesh.DecodeOptions

	mu    sync.Mutex
	cache map[string]*scn.Scene
}

var serverStore *sceneStore

func (s *sceneStore) list() ([]string, error) {
	out := make([]string, 0)
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if strings.EqualFold(filepath.Ext(path), ".scn") {
			rel, err := filepath.Rel(s.root, path)
			if err != nil {
				return err
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	return out, err
}

func (s *sceneStore) scene(file string) (*scn.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, ok := s.cache[file]; ok {
		return sc, nil
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(file)))
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	sc, err := scn.Decode(data, stem, s.opts, nil)
	if err != nil {
		return nil, err
	}
	s.cache[file] = sc
	return sc, nil
}

// sceneSourceDir is where texture files referenced by a scene are searched.
func (s *sceneStore) sceneSourceDir(file string) string {
	return filepath.Dir(filepath.Join(s.root, filepath.FromSlash(file)))
}

func StartServer(addr string, root string, opts mesh.DecodeOptions) error {
	serverStore = &sceneStore{
		root:  root,
		opts:  opts,
		cache: make(map[string]*scn.Scene),
	}

	r := mux.NewRouter()
	r.HandleFunc("/json/scn", HandlerListScenes)
	r.HandleFunc("/json/scn/{file:.+}", HandlerSceneInfo)
	r.HandleFunc("/dump/scn/{file:.+}/mesh/{mesh}/{format}", HandlerExportMesh)
	r.HandleFunc("/dump/scn/{file:.+}/glb", HandlerExportSceneGLB)

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Printf("[web] Starting server %v", addr)

	return http.ListenAndServe(addr, h)
}
