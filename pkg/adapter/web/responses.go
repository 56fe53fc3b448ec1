package web

// SizeResponse answers GET /files/size.
type SizeResponse struct {
	Size int `json:"size"`
}

// SearchResponse answers GET /files/search.
type SearchResponse struct {
	Results []string `json:"results"`
}

// UploadResponse answers POST /files/upload with the generated name.
type UploadResponse struct {
	FileName string `json:"fileName"`
}
