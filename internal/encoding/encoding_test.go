package encoding

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUTF8(t *testing.T) {
	assert.True(t, ValidateUTF8([]byte("héllo, world")))
	assert.False(t, ValidateUTF8([]byte{0xff, 0xfe, 0xfd}))
}

func TestForLabelDefaultsToUTF8PassThrough(t *testing.T) {
	dec := ForLabel("", strings.NewReader("abc"))
	buf, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))

	dec = ForLabel("utf-8", strings.NewReader("xyz"))
	buf, err = io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(buf))
}

func TestValidatedPassesThroughWellFormedInput(t *testing.T) {
	r, err := Validated("", strings.NewReader("id,n\n1,A\n"))
	require.NoError(t, err)
	buf, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "id,n\n1,A\n", string(buf))
}

func TestValidatedRejectsMalformedUTF8(t *testing.T) {
	_, err := Validated("", strings.NewReader("id,n\n1,\xff\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestBufferedReader(t *testing.T) {
	br := BufferedReader(strings.NewReader("line one\nline two\n"))
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "line one\n", line)
}
