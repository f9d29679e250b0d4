package activity

type Category struct {
	ID          int    `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Activity struct {
	ID               int     `json:"activity_id"`
	UserID           int     `json:"user_id"`
	UserName         string  `json:"user_name,omitempty"`
	CategoryID       int     `json:"category_id"`
	CategoryName     string  `json:"category_name,omitempty"`
	Description      string  `json:"description"`
	Points           int     `json:"points"`
	CarbonOffset     float64 `json:"carbon_offset"`
	DateTime         string  `json:"date_time"`
	ImageData        string  `json:"image_data,omitempty"` // base64, as served by the backend
	ImageFilename    string  `json:"image_filename,omitempty"`
	ImageContentType string  `json:"image_content_type,omitempty"`
}

// Attachment is a photo selected for upload, held client-side until submission.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Submission is the raw form input for a new activity. Scalar fields stay
// strings until validation so a bad value fails before any network call.
type Submission struct {
	CategoryID   string
	Description  string
	Points       string
	CarbonOffset string
	Image        *Attachment
}
