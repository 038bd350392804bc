package media

// Source is an uploaded image as the client holds it
type Source struct {
	Filename string
	Content  []byte
}

func (s Source) Size() int {
	return len(s.Content)
}

func (s Source) Empty() bool {
	return len(s.Content) == 0
}

// Mime guesses the content type from the filename first and the bytes second
func (s Source) Mime() string {
	if ext, err := ExtensionFromFilename(s.Filename); err == nil {
		return mimes[ext]
	}

	if ext, _, ok := Sniff(s.Content); ok {
		return mimes[ext]
	}

	return "application/octet-stream"
}

// Clone returns a copy that does not share the content buffer
func (s Source) Clone() Source {
	content := make([]byte, len(s.Content))
	copy(content, s.Content)

	return Source{Filename: s.Filename, Content: content}
}
