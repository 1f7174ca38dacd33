package dto

type UploadResponse struct {
	ObjectKey string `json:"object_key"`
	URL       string `json:"url"`
}

type ViewURLResponse struct {
	URL string `json:"url"`
}
