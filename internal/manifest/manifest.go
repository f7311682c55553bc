// Package manifest loads the static tool manifest shown on the admin page.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/and161185/timetill/internal/errs"
	"github.com/and161185/timetill/internal/model"
)

// Load reads the tool descriptors from path. A missing manifest is
// non-fatal and yields an empty list; a malformed one is a validation
// error so the operator notices the broken file.
func Load(path string) ([]model.ToolDescriptor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ToolDescriptor{}, nil
		}
		return nil, fmt.Errorf("%w: read manifest: %v", errs.ErrPersistence, err)
	}
	var tools []model.ToolDescriptor
	if err := json.Unmarshal(b, &tools); err != nil {
		return nil, fmt.Errorf("%w: manifest is not a tool list: %v", errs.ErrValidation, err)
	}
	return tools, nil
}
