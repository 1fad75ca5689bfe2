package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type content struct {
	Text *string `json:"text,omitempty" validate:"omitempty,max=5"`
	Size *int64  `json:"fileSize,omitempty" validate:"omitempty,min=0"`
}

type request struct {
	Content content `json:"content"`
	Label   string  `json:"label" validate:"required"`
}

func TestStruct(t *testing.T) {
	req := require.New(t)

	long := strings.Repeat("x", 6)
	negative := int64(-1)
	errs := Struct(request{Content: content{Text: &long, Size: &negative}})
	req.True(errs.HasErrors())
	req.Equal("is required", errs["label"])
	req.Equal("must be at most 5 characters", errs["content.text"])
	req.Equal("must be at least 0", errs["content.fileSize"])

	short := "ok"
	errs = Struct(request{Content: content{Text: &short}, Label: "x"})
	req.False(errs.HasErrors())
}
