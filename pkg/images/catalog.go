// Package images catalogs the image files below the work folder.
package images

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/immarkus/immarkus-engine/pkg/models"
)

// idNamespace scopes the name-based ids of images and folders, so an id is
// stable for as long as a file keeps its relative path.
var idNamespace = uuid.MustParse("5b7c9d0e-4f1a-4c6b-9a8e-2d3f4e5a6b7c")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// IsImageFile reports whether name has a known image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ImageID returns the id of the image at a slash-separated relative path.
func ImageID(relPath string) string {
	return uuid.NewSHA1(idNamespace, []byte("image:"+relPath)).String()
}

// FolderID returns the id of the folder at a slash-separated relative path.
func FolderID(relPath string) string {
	return uuid.NewSHA1(idNamespace, []byte("folder:"+relPath)).String()
}

// Catalog is an immutable list of the images and folders found by Scan.
type Catalog struct {
	root     string
	images   []models.Image
	folders  []models.Folder
	imageBy  map[string]int
	folderBy map[string]int
}

// Scan walks root and records every image file and sub-folder. Hidden
// entries, those starting with a dot or an underscore, are skipped.
func Scan(root string, logger *zap.Logger) (*Catalog, error) {
	logger = logger.Named("image-catalog")

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat image root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("image root %q is not a directory", root)
	}

	var (
		images  []models.Image
		folders []models.Folder
	)

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Skipping unreadable entry", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		parentID := parentFolderID(rel)
		if d.IsDir() {
			folders = append(folders, models.Folder{
				ID:       FolderID(rel),
				Name:     d.Name(),
				Path:     rel,
				ParentID: parentID,
			})
			return nil
		}
		if IsImageFile(d.Name()) {
			images = append(images, models.Image{
				ID:       ImageID(rel),
				Name:     d.Name(),
				Path:     rel,
				FolderID: parentID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan image root: %w", err)
	}

	logger.Info("Image catalog loaded",
		zap.String("root", root),
		zap.Int("images", len(images)),
		zap.Int("folders", len(folders)))

	return New(root, images, folders), nil
}

// New builds a catalog from known images and folders, sorted by path.
func New(root string, images []models.Image, folders []models.Folder) *Catalog {
	c := &Catalog{
		root:     root,
		images:   append([]models.Image{}, images...),
		folders:  append([]models.Folder{}, folders...),
		imageBy:  make(map[string]int, len(images)),
		folderBy: make(map[string]int, len(folders)),
	}
	sort.SliceStable(c.images, func(i, j int) bool { return c.images[i].Path < c.images[j].Path })
	sort.SliceStable(c.folders, func(i, j int) bool { return c.folders[i].Path < c.folders[j].Path })
	for i, img := range c.images {
		c.imageBy[img.ID] = i
	}
	for i, f := range c.folders {
		c.folderBy[f.ID] = i
	}
	return c
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func parentFolderID(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return ""
	}
	return FolderID(dir)
}

// Root returns the scanned directory.
func (c *Catalog) Root() string {
	return c.root
}

// Images returns all images ordered by path.
func (c *Catalog) Images() []models.Image {
	return append([]models.Image{}, c.images...)
}

func (c *Catalog) Image(id string) (models.Image, bool) {
	i, ok := c.imageBy[id]
	if !ok {
		return models.Image{}, false
	}
	return c.images[i], true
}

// Folders returns all folders ordered by path.
func (c *Catalog) Folders() []models.Folder {
	return append([]models.Folder{}, c.folders...)
}

func (c *Catalog) Folder(id string) (models.Folder, bool) {
	i, ok := c.folderBy[id]
	if !ok {
		return models.Folder{}, false
	}
	return c.folders[i], true
}

// FolderContents returns the images and sub-folders directly inside a
// folder. The empty id stands for the root.
func (c *Catalog) FolderContents(folderID string) ([]models.Image, []models.Folder) {
	images := []models.Image{}
	for _, img := range c.images {
		if img.FolderID == folderID {
			images = append(images, img)
		}
	}
	folders := []models.Folder{}
	for _, f := range c.folders {
		if f.ParentID == folderID {
			folders = append(folders, f)
		}
	}
	return images, folders
}
