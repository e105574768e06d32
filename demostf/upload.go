package demostf

import (
	"io"
	"mime/multipart"
	"sync/atomic"
)

// UploadRequest describes a demo upload. Body is read incrementally while the
// request is in flight, the file is never buffered in full. A request is
// consumed by a single Upload call and cannot be reused.
type UploadRequest struct {
	// Name is the demo file name shown on demos.tf.
	Name string
	// Red and Blue are the team names.
	Red  string
	Blue string
	// Body yields the demo file content.
	Body io.Reader

	consumed atomic.Bool
}

// consume marks the body as used, reporting whether this call won it.
func (r *UploadRequest) consume() bool {
	return r.Body != nil && r.consumed.CompareAndSwap(false, true)
}

// multipartBody assembles the streamed upload form. The returned reader
// produces the multipart encoding of the metadata fields followed by the file
// content, copied chunk by chunk from the request body.
func (r *UploadRequest) multipartBody(key string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := r.writeForm(mw, key)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		// an error here surfaces as a read error on the request body
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func (r *UploadRequest) writeForm(mw *multipart.Writer, key string) error {
	fields := [...][2]string{
		{"red", r.Red},
		{"blue", r.Blue},
		{"name", r.Name},
		{"key", key},
	}
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("demo", "demo.dem")
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r.Body)
	return err
}
