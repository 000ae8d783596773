package transcription

import "bytes"

// multipartBody is a bytes.Buffer alias so buildMultipartForm's return type
// reads as domain-specific at call sites while remaining a plain io.Reader.
type multipartBody = bytes.Buffer

func newMultipartBody() *multipartBody {
	return &bytes.Buffer{}
}
