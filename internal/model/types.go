package model

// Labels is the class list the checkpoint was trained against. Index i of
// Classes names output i of the network, so the file is versioned together
// with the checkpoint and must not be reordered.
type Labels struct {
	Version          string   `json:"version"`
	ImageSize        int      `json:"image_size"`
	CheckpointSHA256 string   `json:"checkpoint_sha256,omitempty"`
	Classes          []string `json:"classes"`
}

// Prediction is the top scoring class for one image.
type Prediction struct {
	Class      string  `json:"class"`
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`
}
