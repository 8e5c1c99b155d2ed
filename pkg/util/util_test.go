package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDateTpl(t *testing.T) {
	ts := time.Date(2023, 11, 10, 7, 5, 9, 0, time.Local).UnixMilli()

	assert.Equal(t, "2023.11.10", FormatDateTpl(ts, "YYYY.MM.DD"))
	assert.Equal(t, "10/11/23", FormatDateTpl(ts, "DD/MM/YY"))
	assert.Equal(t, "2023-11-10 07:05:09", FormatDateTpl(ts, "YYYY-MM-DD hh:mm:ss"))
	assert.Equal(t, "", FormatDateTpl(0, "YYYY"))
}
