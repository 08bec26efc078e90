package blobserve

// Descriptor summarizes one regular file in the base directory.
type Descriptor struct {
	// Name is the final path element of the file.
	Name string `json:"name"`

	// Size is the file length in bytes.
	Size uint64 `json:"size"`
}
