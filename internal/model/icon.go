package model

// Icon is a condition pictogram whose bytes decoded successfully.
type Icon struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

// ContentType returns the MIME type matching the decoded format.
func (i *Icon) ContentType() string {
	if i.Format == "" {
		return "application/octet-stream"
	}
	return "image/" + i.Format
}
