package models

// ImageUpload is raw image content handed to the image host.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the payload size in bytes.
func (u ImageUpload) Size() int {
	return len(u.Data)
}
