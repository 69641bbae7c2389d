package llm

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/proposal-builder/constants"
)

// MaxVisionMB caps the size of an image sent inline to a vision model.
const MaxVisionMB = 20

// ReadAsDataURL reads an image file and returns it as a base64 data URL
// together with its MIME type.
func ReadAsDataURL(path string) (string, string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", "", err
	}
	if st.Size() > int64(MaxVisionMB)*1024*1024 {
		return "", "", fmt.Errorf("image %s exceeds %d MB", filepath.Base(path), MaxVisionMB)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	mt := constants.MimeTypeForExt(filepath.Ext(path))
	data := base64.StdEncoding.EncodeToString(b)
	return "data:" + mt + ";base64," + data, mt, nil
}
