package pdftest

import (
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"fmt"
	"strings"
)

// FileID is the first /ID entry of encrypted test documents
var FileID = []byte("0123456789abcdef")

var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

const (
	encryptPerms  = -4
	encryptKeyLen = 5
)

func pad(password string) []byte {
	out := make([]byte, 32)
	n := copy(out, password)
	copy(out[n:], passwordPad)
	return out
}

func rc4Bytes(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// EncryptedDocument returns a document protected by the standard security
// handler, revision 2 with a 40 bit key. Object 3 is the info dictionary
// with an encrypted /Title. padding is inserted before every object.
func EncryptedDocument(user, owner, title string, pages, padding int) []byte {
	ownerKey := md5.Sum(pad(owner))
	o := rc4Bytes(ownerKey[:encryptKeyLen], pad(user))

	h := md5.New()
	h.Write(pad(user))
	h.Write(o)
	var perms [4]byte
	p := int32(encryptPerms)
	binary.LittleEndian.PutUint32(perms[:], uint32(p))
	h.Write(perms[:])
	h.Write(FileID)
	fileKey := h.Sum(nil)[:encryptKeyLen]
	u := rc4Bytes(fileKey, passwordPad)

	// object 3, generation 0
	objKey := md5.Sum(append(append([]byte{}, fileKey...), 3, 0, 0, 0, 0))
	encTitle := rc4Bytes(objKey[:encryptKeyLen+5], []byte(title))

	b := New().Trailer(fmt.Sprintf("/Root 1 0 R /Info 3 0 R /Encrypt %d 0 R /ID [<%x> <%x>]", pages+4, FileID, FileID))

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+4)
	}
	b.Padding(padding).Object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.Padding(padding).Object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), pages))
	b.Padding(padding).Object(3, fmt.Sprintf("<< /Title <%x> >>", encTitle))
	for i := 0; i < pages; i++ {
		b.Padding(padding).Object(i+4, "<< /Type /Page /Parent 2 0 R >>")
	}
	b.Padding(padding).Object(pages+4, fmt.Sprintf(
		"<< /Filter /Standard /V 1 /R 2 /Length %d /O <%x> /U <%x> /P %d >>",
		encryptKeyLen*8, o, u, encryptPerms))

	return b.Bytes()
}
