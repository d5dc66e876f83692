package model

// Profile is the resolved identity of a handle: who it is and which
// picture the outfit will be generated from. It is never persisted.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Name        string `json:"name"`
	ImageURL    string `json:"imageUrl"`
}
