package document

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/lazypdf/core"
	"github.com/tsawler/lazypdf/internal/pdftest"
)

var testFileID = []byte("0123456789abcdef")

// newTestParams computes /O and /U for the given passwords
func newTestParams(r, keyLength int, user, owner string) *encryptParams {
	p := &encryptParams{
		V:               2,
		R:               r,
		KeyLength:       keyLength,
		P:               -4,
		ID:              testFileID,
		EncryptMetadata: true,
		StmF:            cryptRC4,
		StrF:            cryptRC4,
	}
	if r == 2 {
		p.V = 1
	}

	ownerKey := p.ownerKey([]byte(owner))
	o := rc4Crypt(ownerKey, padPassword([]byte(user)))
	if r >= 3 {
		for i := 1; i <= 19; i++ {
			o = rc4Crypt(xorKey(ownerKey, byte(i)), o)
		}
	}
	p.O = o

	u := p.userValue(p.fileKey([]byte(user)))
	p.U = append(u, make([]byte, 32-len(u))...)
	return p
}

// encryptedDocument expects params made for the passwords "user" and "owner"
func encryptedDocument(t *testing.T, p *encryptParams, title string) []byte {
	t.Helper()

	handler := &securityHandler{params: *p, key: p.fileKey([]byte("user"))}
	encTitle := rc4Crypt(handler.objectKey(core.IndirectRef{Number: 3}, cryptRC4), []byte(title))

	encrypt := fmt.Sprintf("<< /Filter /Standard /V %d /R %d /Length %d /O <%s> /U <%s> /P %d >>",
		p.V, p.R, p.KeyLength*8, hex.EncodeToString(p.O), hex.EncodeToString(p.U), p.P)

	return pdftest.New().
		Trailer(fmt.Sprintf("/Root 1 0 R /Info 3 0 R /Encrypt 5 0 R /ID [<%x> <%x>]", testFileID, testFileID)).
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [4 0 R] /Count 1 >>").
		Object(3, fmt.Sprintf("<< /Title <%x> >>", encTitle)).
		Object(4, "<< /Type /Page /Parent 2 0 R >>").
		Object(5, encrypt).
		Bytes()
}

func TestEncryption_Passwords(t *testing.T) {
	for _, r := range []int{2, 3} {
		keyLength := 5
		if r == 3 {
			keyLength = 16
		}

		t.Run(fmt.Sprintf("R%d", r), func(t *testing.T) {
			data := encryptedDocument(t, newTestParams(r, keyLength, "user", "owner"), "Secret Title")

			parse := func(password string) (*Document, error) {
				doc := New(bytes.NewReader(data), int64(len(data)), DefaultEvaluatorOptions())
				require.NoError(t, doc.ParseStartXRef())
				return doc, doc.Parse([]byte(password))
			}

			_, err := parse("")
			pe, ok := AsPasswordError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, NeedPassword, pe.Reason)

			_, err = parse("wrong")
			pe, ok = AsPasswordError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, IncorrectPassword, pe.Reason)

			for _, password := range []string{"user", "owner"} {
				doc, err := parse(password)
				require.NoError(t, err, password)

				info, err := doc.Info()
				require.NoError(t, err)
				assert.Equal(t, "Secret Title", info["Title"], password)

				n, err := doc.NumPages()
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			}
		})
	}
}

func TestEncryption_FixtureDocument(t *testing.T) {
	data := pdftest.EncryptedDocument("user", "owner", "Fixture", 2, 0)

	for _, password := range []string{"user", "owner"} {
		doc := New(bytes.NewReader(data), int64(len(data)), DefaultEvaluatorOptions())
		require.NoError(t, doc.ParseStartXRef())
		require.NoError(t, doc.Parse([]byte(password)), password)

		info, err := doc.Info()
		require.NoError(t, err)
		assert.Equal(t, "Fixture", info["Title"])

		n, err := doc.NumPages()
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	}
}

func TestEncryption_ReparseWithPassword(t *testing.T) {
	data := encryptedDocument(t, newTestParams(3, 16, "user", "owner"), "Again")
	doc := New(bytes.NewReader(data), int64(len(data)), DefaultEvaluatorOptions())

	_, isPassword := AsPasswordError(doc.Parse(nil))
	require.True(t, isPassword)
	_, err := doc.XRef()
	assert.ErrorIs(t, err, ErrNotParsed)

	require.NoError(t, doc.Parse([]byte("user")))
	info, err := doc.Info()
	require.NoError(t, err)
	assert.Equal(t, "Again", info["Title"])
}

func TestEncryption_Unsupported(t *testing.T) {
	trailer := core.Dict{}
	_, err := parseEncryptParams(core.Dict{
		"Filter": core.Name("Standard"),
		"V":      core.Int(5),
		"R":      core.Int(6),
	}, trailer)
	assert.ErrorIs(t, err, ErrUnsupportedEncryption)

	_, err = parseEncryptParams(core.Dict{"Filter": core.Name("Adobe.PubSec")}, trailer)
	assert.ErrorIs(t, err, ErrUnsupportedEncryption)
}

func TestEncryption_CryptFilters(t *testing.T) {
	p := newTestParams(3, 16, "", "owner")
	dict := core.Dict{
		"Filter": core.Name("Standard"),
		"V":      core.Int(4),
		"R":      core.Int(4),
		"O":      core.String(p.O),
		"U":      core.String(p.U),
		"P":      core.Int(-4),
		"CF": core.Dict{
			"StdCF": core.Dict{"CFM": core.Name("AESV2"), "Length": core.Int(16)},
		},
		"StmF": core.Name("StdCF"),
		"StrF": core.Name("Identity"),
	}

	params, err := parseEncryptParams(dict, core.Dict{})
	require.NoError(t, err)
	assert.Equal(t, cryptAESV2, params.StmF)
	assert.Equal(t, cryptIdentity, params.StrF)
	assert.Equal(t, 16, params.KeyLength)
}

func TestAESDecrypt(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("fedcba9876543210")
	plain := []byte("hello, world")

	padded := append([]byte(nil), plain...)
	pad := aes.BlockSize - len(padded)%aes.BlockSize
	for i := 0; i < pad; i++ {
		padded = append(padded, byte(pad))
	}

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	got, err := aesDecrypt(key, append(iv, ciphertext...))
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	_, err = aesDecrypt(key, []byte("short"))
	assert.Error(t, err)
}
