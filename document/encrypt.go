package document

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"fmt"

	"github.com/tsawler/lazypdf/core"
)

// passwordPadding pads or replaces passwords for the standard security handler
var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

type cryptMethod int

const (
	cryptIdentity cryptMethod = iota
	cryptRC4
	cryptAESV2
)

// encryptParams holds the fields of a standard security handler dictionary
type encryptParams struct {
	V, R            int
	KeyLength       int // bytes
	O, U            []byte
	P               int32
	ID              []byte
	EncryptMetadata bool
	StmF, StrF      cryptMethod
}

// securityHandler decrypts strings and streams once a password has been
// accepted.
type securityHandler struct {
	params encryptParams
	key    []byte
	owner  bool
}

func parseEncryptParams(dict, trailer core.Dict) (*encryptParams, error) {
	if filter, _ := dict.GetName("Filter"); filter != "Standard" {
		return nil, fmt.Errorf("%w: security handler %q", ErrUnsupportedEncryption, filter)
	}

	v, _ := dict.GetInt("V")
	r, ok := dict.GetInt("R")
	if !ok {
		return nil, fmt.Errorf("encryption dictionary missing /R")
	}
	if v >= 5 || r >= 5 {
		return nil, fmt.Errorf("%w: V=%d R=%d", ErrUnsupportedEncryption, v, r)
	}

	p := &encryptParams{
		V:               int(v),
		R:               int(r),
		KeyLength:       5,
		EncryptMetadata: true,
		StmF:            cryptRC4,
		StrF:            cryptRC4,
	}

	if length, ok := dict.GetInt("Length"); ok && r >= 3 {
		if length < 40 || length > 128 || length%8 != 0 {
			return nil, fmt.Errorf("invalid key length %d", length)
		}
		p.KeyLength = int(length) / 8
	}

	o, ok := dict.GetString("O")
	if !ok || len(o) < 32 {
		return nil, fmt.Errorf("encryption dictionary has invalid /O")
	}
	u, ok := dict.GetString("U")
	if !ok || len(u) < 32 {
		return nil, fmt.Errorf("encryption dictionary has invalid /U")
	}
	p.O = []byte(o)[:32]
	p.U = []byte(u)[:32]

	perms, ok := dict.GetInt("P")
	if !ok {
		return nil, fmt.Errorf("encryption dictionary missing /P")
	}
	p.P = int32(perms)

	if em, ok := dict.GetBool("EncryptMetadata"); ok {
		p.EncryptMetadata = bool(em)
	}

	if ids, ok := trailer.GetArray("ID"); ok && len(ids) > 0 {
		if id, ok := ids[0].(core.String); ok {
			p.ID = []byte(id)
		}
	}

	if p.V == 4 {
		if err := p.parseCryptFilters(dict); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *encryptParams) parseCryptFilters(dict core.Dict) error {
	filters, _ := dict.GetDict("CF")

	method := func(key string) (cryptMethod, error) {
		name, ok := dict.GetName(key)
		if !ok || name == "Identity" {
			return cryptIdentity, nil
		}
		cf, ok := filters.GetDict(string(name))
		if !ok {
			return 0, fmt.Errorf("crypt filter %q not defined", name)
		}
		if length, ok := cf.GetInt("Length"); ok && length >= 5 && length <= 16 {
			p.KeyLength = int(length)
		}
		switch cfm, _ := cf.GetName("CFM"); cfm {
		case "V2":
			return cryptRC4, nil
		case "AESV2":
			return cryptAESV2, nil
		case "None", "":
			return cryptIdentity, nil
		default:
			return 0, fmt.Errorf("%w: crypt filter method %q", ErrUnsupportedEncryption, cfm)
		}
	}

	var err error
	if p.StmF, err = method("StmF"); err != nil {
		return err
	}
	if p.StrF, err = method("StrF"); err != nil {
		return err
	}
	return nil
}

func padPassword(password []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, password)
	copy(padded[n:], passwordPadding)
	return padded
}

// fileKey computes the file encryption key from a user password
func (p *encryptParams) fileKey(password []byte) []byte {
	h := md5.New()
	h.Write(padPassword(password))
	h.Write(p.O)
	var perms [4]byte
	binary.LittleEndian.PutUint32(perms[:], uint32(p.P))
	h.Write(perms[:])
	h.Write(p.ID)
	if p.R >= 4 && !p.EncryptMetadata {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	sum := h.Sum(nil)

	if p.R >= 3 {
		for i := 0; i < 50; i++ {
			next := md5.Sum(sum[:p.KeyLength])
			sum = next[:]
		}
	}
	return sum[:p.KeyLength]
}

// userValue computes the /U entry that key would produce
func (p *encryptParams) userValue(key []byte) []byte {
	if p.R == 2 {
		return rc4Crypt(key, passwordPadding)
	}

	h := md5.New()
	h.Write(passwordPadding)
	h.Write(p.ID)
	out := rc4Crypt(key, h.Sum(nil))
	for i := 1; i <= 19; i++ {
		out = rc4Crypt(xorKey(key, byte(i)), out)
	}
	return out
}

// authenticateUser returns the file key if password is the user password
func (p *encryptParams) authenticateUser(password []byte) ([]byte, bool) {
	key := p.fileKey(password)
	u := p.userValue(key)
	n := 32
	if p.R >= 3 {
		n = 16
	}
	return key, bytes.Equal(u[:n], p.U[:n])
}

// ownerKey derives the RC4 key that encrypts the user password into /O
func (p *encryptParams) ownerKey(owner []byte) []byte {
	sum := md5.Sum(padPassword(owner))
	digest := sum[:]
	if p.R >= 3 {
		for i := 0; i < 50; i++ {
			next := md5.Sum(digest)
			digest = next[:]
		}
	}
	return digest[:p.KeyLength]
}

// authenticateOwner recovers the user password from /O and checks it
func (p *encryptParams) authenticateOwner(password []byte) ([]byte, bool) {
	key := p.ownerKey(password)

	user := append([]byte(nil), p.O...)
	if p.R == 2 {
		user = rc4Crypt(key, user)
	} else {
		for i := 19; i >= 0; i-- {
			user = rc4Crypt(xorKey(key, byte(i)), user)
		}
	}
	return p.authenticateUser(user)
}

func newSecurityHandler(params *encryptParams, password []byte) (*securityHandler, error) {
	if key, ok := params.authenticateUser(password); ok {
		return &securityHandler{params: *params, key: key}, nil
	}
	if len(password) > 0 {
		if key, ok := params.authenticateOwner(password); ok {
			return &securityHandler{params: *params, key: key, owner: true}, nil
		}
		return nil, &PasswordError{Reason: IncorrectPassword}
	}
	return nil, &PasswordError{Reason: NeedPassword}
}

func (s *securityHandler) objectKey(ref core.IndirectRef, method cryptMethod) []byte {
	h := md5.New()
	h.Write(s.key)
	h.Write([]byte{
		byte(ref.Number), byte(ref.Number >> 8), byte(ref.Number >> 16),
		byte(ref.Generation), byte(ref.Generation >> 8),
	})
	if method == cryptAESV2 {
		h.Write([]byte("sAlT"))
	}
	sum := h.Sum(nil)
	return sum[:min(len(s.key)+5, 16)]
}

func (s *securityHandler) decrypt(data []byte, ref core.IndirectRef, method cryptMethod) ([]byte, error) {
	switch method {
	case cryptRC4:
		return rc4Crypt(s.objectKey(ref, method), data), nil
	case cryptAESV2:
		return aesDecrypt(s.objectKey(ref, method), data)
	}
	return data, nil
}

// decryptObject decrypts every string and stream reachable from obj
// without following references.
func (s *securityHandler) decryptObject(obj core.Object, ref core.IndirectRef) (core.Object, error) {
	switch v := obj.(type) {
	case core.String:
		out, err := s.decrypt([]byte(v), ref, s.params.StrF)
		if err != nil {
			return nil, err
		}
		return core.String(out), nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			d, err := s.decryptObject(elem, ref)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil

	case core.Dict:
		out := make(core.Dict, len(v))
		for key, elem := range v {
			d, err := s.decryptObject(elem, ref)
			if err != nil {
				return nil, err
			}
			out[key] = d
		}
		return out, nil

	case *core.Stream:
		typ, _ := v.Dict.GetName("Type")
		if typ == "XRef" || (typ == "Metadata" && !s.params.EncryptMetadata) {
			return v, nil
		}
		dict, err := s.decryptObject(v.Dict, ref)
		if err != nil {
			return nil, err
		}
		data, err := s.decrypt(v.Data, ref, s.params.StmF)
		if err != nil {
			return nil, err
		}
		return &core.Stream{Dict: dict.(core.Dict), Data: data, Offset: v.Offset}, nil
	}
	return obj, nil
}

func rc4Crypt(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// key length is always within 1..256
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

func xorKey(key []byte, b byte) []byte {
	out := make([]byte, len(key))
	for i := range key {
		out[i] = key[i] ^ b
	}
	return out
}

func aesDecrypt(key, data []byte) ([]byte, error) {
	if len(data) < aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes: invalid ciphertext length %d", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)

	if len(out) == 0 {
		return out, nil
	}
	pad := int(out[len(out)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(out) {
		return nil, fmt.Errorf("aes: invalid padding")
	}
	return out[:len(out)-pad], nil
}
