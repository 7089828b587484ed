package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cover.JPG")
	writeFile(t, root, "notes.txt")
	writeFile(t, root, "box1/page-1.png")
	writeFile(t, root, "box1/page-1.json")
	writeFile(t, root, "box1/sub/detail.tif")
	writeFile(t, root, "_immarkus/annotations/x.json")
	writeFile(t, root, ".thumbs/cover.jpg")

	c, err := Scan(root, zap.NewNop())
	require.NoError(t, err)

	imgs := c.Images()
	require.Len(t, imgs, 3)
	assert.Equal(t, "box1/page-1.png", imgs[0].Path)
	assert.Equal(t, "box1/sub/detail.tif", imgs[1].Path)
	assert.Equal(t, "cover.JPG", imgs[2].Path)

	folders := c.Folders()
	require.Len(t, folders, 2)
	assert.Equal(t, "box1", folders[0].Path)
	assert.Empty(t, folders[0].ParentID)
	assert.Equal(t, "box1/sub", folders[1].Path)
	assert.Equal(t, folders[0].ID, folders[1].ParentID)

	assert.Equal(t, folders[0].ID, imgs[0].FolderID)
	assert.Empty(t, imgs[2].FolderID)
}

func TestScan_StableIDs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b.jpg")

	first, err := Scan(root, zap.NewNop())
	require.NoError(t, err)
	second, err := Scan(root, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, first.Images()[0].ID, second.Images()[0].ID)
	assert.Equal(t, ImageID("a/b.jpg"), first.Images()[0].ID)
	assert.NotEqual(t, ImageID("a"), FolderID("a"), "image and folder ids live in separate spaces")
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = Scan(file, zap.NewNop())
	assert.Error(t, err)
}

func TestCatalog_Lookups(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cover.jpg")
	writeFile(t, root, "box1/page-1.png")
	writeFile(t, root, "box1/sub/detail.tif")

	c, err := Scan(root, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, root, c.Root())

	img, ok := c.Image(ImageID("box1/page-1.png"))
	require.True(t, ok)
	assert.Equal(t, "page-1.png", img.Name)

	_, ok = c.Image("nope")
	assert.False(t, ok)

	box, ok := c.Folder(FolderID("box1"))
	require.True(t, ok)
	assert.Equal(t, "box1", box.Name)

	rootImages, rootFolders := c.FolderContents("")
	require.Len(t, rootImages, 1)
	assert.Equal(t, "cover.jpg", rootImages[0].Name)
	require.Len(t, rootFolders, 1)
	assert.Equal(t, "box1", rootFolders[0].Name)

	boxImages, boxFolders := c.FolderContents(box.ID)
	require.Len(t, boxImages, 1)
	require.Len(t, boxFolders, 1)
	assert.Equal(t, "sub", boxFolders[0].Name)

	emptyImages, emptyFolders := c.FolderContents("unknown")
	assert.Empty(t, emptyImages)
	assert.Empty(t, emptyFolders)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.jpeg"))
	assert.True(t, IsImageFile("A.PNG"))
	assert.False(t, IsImageFile("a.json"))
	assert.False(t, IsImageFile("jpg"))
}
