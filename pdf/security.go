package pdf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"encoding/binary"
	"errors"
	"fmt"
)

// Standard security handler padding string, from ISO 32000-1.
var passwordPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var ErrPasswordProtected = errors.New("template requires a password")

// securityHandler decrypts a file whose standard encryption was applied
// with an empty user password. Such decorative encryption is bypassed on
// open: every object loads as plain data and serialization drops /Encrypt.
type securityHandler struct {
	key    []byte
	rev    int
	useAES bool
}

func newSecurityHandler(enc Dict, fileID []byte, resolve func(Object) Object) (*securityHandler, error) {
	filter, _ := enc.name("Filter")
	if filter != "Standard" {
		return nil, fmt.Errorf("unsupported security filter /%s", filter)
	}
	v, _ := enc.integer("V")
	rev, _ := enc.integer("R")
	if v >= 5 || rev >= 5 {
		// AES-256 key derivation needs real password processing; out of
		// scope for empty-password bypass.
		return nil, ErrPasswordProtected
	}
	oObj, _ := resolve(enc["O"]).(String)
	if len(oObj) < 32 {
		return nil, errors.New("encryption dictionary missing /O")
	}
	p, ok := enc.integer("P")
	if !ok {
		return nil, errors.New("encryption dictionary missing /P")
	}
	length := int64(40)
	if n, ok := enc.integer("Length"); ok {
		length = n
	}
	keyLen := int(length / 8)
	if rev == 2 {
		keyLen = 5
	}
	if keyLen < 5 || keyLen > 16 {
		return nil, fmt.Errorf("unsupported key length %d bits", length)
	}

	useAES := false
	if v == 4 {
		if cf, ok := resolve(enc["CF"]).(Dict); ok {
			if std, ok := resolve(cf["StdCF"]).(Dict); ok {
				if cfm, _ := std.name("CFM"); cfm == "AESV2" {
					useAES = true
				} else if cfm == "AESV3" {
					return nil, ErrPasswordProtected
				}
			}
		}
	}

	// Algorithm 2 with the empty user password: pad || O || P || ID.
	h := md5.New()
	h.Write(passwordPad)
	h.Write(oObj[:32])
	var pLE [4]byte
	binary.LittleEndian.PutUint32(pLE[:], uint32(int32(p)))
	h.Write(pLE[:])
	h.Write(fileID)
	if rev >= 4 {
		if em, ok := enc["EncryptMetadata"].(Boolean); ok && !bool(em) {
			h.Write([]byte{0xff, 0xff, 0xff, 0xff})
		}
	}
	key := h.Sum(nil)[:keyLen]
	if rev >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:keyLen])
			key = sum[:keyLen]
		}
	}
	return &securityHandler{key: key, rev: int(rev), useAES: useAES}, nil
}

// decrypt transforms the bytes of a string or stream belonging to the given
// object. Failures degrade to the raw bytes rather than failing the load:
// a mangled lone string must not take the whole template down.
func (s *securityHandler) decrypt(num, gen int, data []byte) []byte {
	key := s.objectKey(num, gen)
	if s.useAES {
		if len(data) < aes.BlockSize || len(data)%aes.BlockSize != 0 {
			return data
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return data
		}
		iv := data[:aes.BlockSize]
		out := make([]byte, len(data)-aes.BlockSize)
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data[aes.BlockSize:])
		// Strip PKCS#7 padding.
		if n := len(out); n > 0 {
			pad := int(out[n-1])
			if pad > 0 && pad <= aes.BlockSize && pad <= n {
				out = out[:n-pad]
			}
		}
		return out
	}
	c, err := rc4.NewCipher(key)
	if err != nil {
		return data
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

func (s *securityHandler) objectKey(num, gen int) []byte {
	h := md5.New()
	h.Write(s.key)
	h.Write([]byte{byte(num), byte(num >> 8), byte(num >> 16), byte(gen), byte(gen >> 8)})
	if s.useAES {
		h.Write([]byte{0x73, 0x41, 0x6C, 0x54}) // "sAlT"
	}
	sum := h.Sum(nil)
	n := len(s.key) + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}

// decryptObject walks an object tree decrypting the strings in place.
func (s *securityHandler) decryptObject(obj Object, num, gen int) Object {
	switch v := obj.(type) {
	case String:
		return String(s.decrypt(num, gen, v))
	case Array:
		for i := range v {
			v[i] = s.decryptObject(v[i], num, gen)
		}
		return v
	case Dict:
		for k := range v {
			v[k] = s.decryptObject(v[k], num, gen)
		}
		return v
	case *Stream:
		v.Dict = s.decryptObject(v.Dict, num, gen).(Dict)
		v.Data = s.decrypt(num, gen, v.Data)
		return v
	default:
		return obj
	}
}

func fileIDBytes(trailer Dict) []byte {
	arr, ok := trailer["ID"].(Array)
	if !ok || len(arr) == 0 {
		return nil
	}
	if s, ok := arr[0].(String); ok {
		return bytes.Clone([]byte(s))
	}
	return nil
}
