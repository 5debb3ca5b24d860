package validation

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	// "é" as e + combining acute accent
	got, err := NormalizeName("cafe\u0301.txt")
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9.txt", got)

	_, err = NormalizeName("   ")
	assert.Error(t, err)

	_, err = NormalizeName(strings.Repeat("a", 256))
	assert.Error(t, err)

	_, err = NormalizeName("a\x00b")
	assert.Error(t, err)

	got, err = NormalizeName("Photos")
	require.NoError(t, err)
	assert.Equal(t, "Photos", got)
}

func TestDecodeData(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("Hello Webstack!\n"))

	got, err := DecodeData(encoded, 1024)
	require.NoError(t, err)
	assert.Equal(t, "Hello Webstack!\n", string(got))

	got, err = DecodeData(strings.TrimRight(encoded, "="), 1024)
	require.NoError(t, err)
	assert.Equal(t, "Hello Webstack!\n", string(got))

	got, err = DecodeData(encoded[:8]+"\n"+encoded[8:], 1024)
	require.NoError(t, err)
	assert.Equal(t, "Hello Webstack!\n", string(got))

	_, err = DecodeData("!!not base64!!", 1024)
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = DecodeData(encoded, 4)
	assert.ErrorIs(t, err, ErrDataTooLarge)

	// exactly at the limit is fine
	_, err = DecodeData(encoded, 16)
	assert.NoError(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("cat.png"))
	assert.Equal(t, "image/png", ContentType("CAT.PNG"))
	assert.Contains(t, ContentType("notes.txt"), "text/plain")
	assert.Equal(t, "application/octet-stream", ContentType("blob"))
	assert.Equal(t, "application/octet-stream", ContentType("README"))
	assert.Equal(t, "application/octet-stream", ContentType("archive.unknownext"))
}

func TestSniffContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", SniffContentType(nil))
	assert.Contains(t, SniffContentType([]byte("hello world")), "text/plain")
	assert.Equal(t, "image/png", SniffContentType([]byte("\x89PNG\r\n\x1a\n0000")))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("bob@dylan.com"))
	assert.ErrorIs(t, ValidateEmail(""), ErrEmailRequired)
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrEmailInvalid)
	assert.ErrorIs(t, ValidateEmail(strings.Repeat("a", 250)+"@x.com"), ErrEmailTooLong)
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{"bob@dylan.com", "bob@dylan.com", nil},
		{"  Bob@Dylan.COM\t", "bob@dylan.com", nil},
		{"first.last+tag@mail.example.org", "first.last+tag@mail.example.org", nil},
		{"   ", "", ErrEmailRequired},
		{"Bob <bob@dylan.com>", "", ErrEmailInvalid},
		{"<bob@dylan.com>", "", ErrEmailInvalid},
		{"bob@localhost", "", ErrEmailInvalid},
		{"bob@@dylan.com", "", ErrEmailInvalid},
		{strings.Repeat("a", 65) + "@dylan.com", "", ErrEmailInvalid},
		{strings.Repeat("a", 64) + "@dylan.com", strings.Repeat("a", 64) + "@dylan.com", nil},
	}

	for _, tc := range cases {
		got, err := NormalizeEmail(tc.in)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("toto1234!"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword(strings.Repeat("p", 73)))
}
