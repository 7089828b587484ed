package models

// Image is an image file found under the work folder.
type Image struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`               // slash-separated, relative to the root folder
	FolderID string `json:"folderId,omitempty"` // empty for images directly in the root
}

// Folder is a sub-folder of the work folder.
type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	ParentID string `json:"parentId,omitempty"`
}
