package kdf

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"azoo.dev/utils/xtee/tee"
)

// vector sources
//   - HKDF:       RFC 5869, appendix A
//   - Concat KDF: JSON Web Algorithms draft 37, appendix C
//   - PBKDF2:     RFC 6070
//   - scrypt:     draft-josefsson-scrypt-kdf, section 11, plus a large r
//     vector
var catalog = []Vector{
	{
		Family:    FamilyHKDF,
		ID:        "A.1",
		Label:     "A.1 (SHA-256)",
		Algorithm: tee.AlgHKDFSHA256DeriveKey,
		Secret:    bytes.Repeat([]byte{0x0b}, 22),
		Salt:      mustHex("000102030405060708090a0b0c"),
		Info:      mustHex("f0f1f2f3f4f5f6f7f8f9"),
		Expected: mustHex("3cb25f25faacd57a90434f64d0362f2a" +
			"2d2d0a90cf1a5a4c5db02d56ecc4c5bf" +
			"34007208d5b887185865"),
	},
	{
		Family:    FamilyHKDF,
		ID:        "A.2",
		Label:     "A.2 (SHA-256)",
		Algorithm: tee.AlgHKDFSHA256DeriveKey,
		Secret:    sequence(0x00, 0x4f),
		Salt:      sequence(0x60, 0xaf),
		Info:      sequence(0xb0, 0xff),
		Expected: mustHex("b11e398dc80327a1c8e7f78c596a4934" +
			"4f012eda2d4efad8a050cc4c19afa97c" +
			"59045a99cac7827271cb41c65e590e09" +
			"da3275600c2f09b8367793a9aca3db71" +
			"cc30c58179ec3e87c14c01d5c1f3434f" +
			"1d87"),
	},
	{
		Family:    FamilyHKDF,
		ID:        "A.3",
		Label:     "A.3 (SHA-256)",
		Algorithm: tee.AlgHKDFSHA256DeriveKey,
		Secret:    bytes.Repeat([]byte{0x0b}, 22),
		Salt:      []byte{},
		Info:      []byte{},
		Expected: mustHex("8da4e775a563c18f715f802a063c5a31" +
			"b8a11f5c5ee1879ec3454e5f3c738d2d" +
			"9d201395faa4b61a96c8"),
	},
	{
		Family:    FamilyHKDF,
		ID:        "A.4",
		Label:     "A.4 (SHA-1)",
		Algorithm: tee.AlgHKDFSHA1DeriveKey,
		Secret:    bytes.Repeat([]byte{0x0b}, 11),
		Salt:      mustHex("000102030405060708090a0b0c"),
		Info:      mustHex("f0f1f2f3f4f5f6f7f8f9"),
		Expected: mustHex("085a01ea1b10f36933068b56efa5ad81" +
			"a4f14b822f5b091568a9cdd4f155fda2" +
			"c22e422478d305f3f896"),
	},
	{
		Family:    FamilyHKDF,
		ID:        "A.5",
		Label:     "A.5 (SHA-1)",
		Algorithm: tee.AlgHKDFSHA1DeriveKey,
		Secret:    sequence(0x00, 0x4f),
		Salt:      sequence(0x60, 0xaf),
		Info:      sequence(0xb0, 0xff),
		Expected: mustHex("0bd770a74d1160f7c9f12cd5912a06eb" +
			"ff6adcae899d92191fe4305673ba2ffe" +
			"8fa3f1a4e5ad79f3f334b3b202b2173c" +
			"486ea37ce3d397ed034c7f9dfeb15c5e" +
			"927336d0441f4c4300e2cff0d0900b52" +
			"d3b4"),
	},
	{
		Family:    FamilyHKDF,
		ID:        "A.6",
		Label:     "A.6 (SHA-1)",
		Algorithm: tee.AlgHKDFSHA1DeriveKey,
		Secret:    bytes.Repeat([]byte{0x0b}, 22),
		Salt:      []byte{},
		Info:      []byte{},
		Expected: mustHex("0ac1af7002b3d761d1e55298da9d0506" +
			"b9ae52057220a306e07b6b87e8df21d0" +
			"ea00033de03984d34918"),
	},
	{
		Family:    FamilyHKDF,
		ID:        "A.7",
		Label:     "A.7 (SHA-1)",
		Algorithm: tee.AlgHKDFSHA1DeriveKey,
		Secret:    bytes.Repeat([]byte{0x0c}, 22),
		Salt:      []byte{},
		Info:      []byte{},
		Expected: mustHex("2c91117204d745f3500d636a62f64f0a" +
			"b3bae548aa53d423b0d1f27ebba6f5e5" +
			"673a081d70cce7acfc48"),
	},

	{
		Family:    FamilyConcatKDF,
		ID:        "C",
		Label:     "JWA-37 C (SHA-256)",
		Algorithm: tee.AlgConcatKDFSHA256DeriveKey,
		Secret: mustHex("9e56d91d817135d372834283bf84269c" +
			"fb316ea3da806a48f6daa7798cfe90c4"),
		// AlgorithmID "A128GCM", PartyUInfo "Alice", PartyVInfo "Bob" and
		// SuppPubInfo 128, each length prefixed
		Info: mustHex("000000074131323847434d" +
			"00000005416c696365" +
			"00000003426f62" +
			"00000080"),
		Expected: mustHex("56aa8deaf8236d205c2228cd71a7101a"),
	},

	{
		Family:     FamilyPBKDF2,
		ID:         "1",
		Label:      "RFC 6070 1 (HMAC-SHA1)",
		Algorithm:  tee.AlgPBKDF2HMACSHA1DeriveKey,
		Secret:     []byte("password"),
		Salt:       []byte("salt"),
		Iterations: 1,
		Expected:   mustHex("0c60c80f961f0e71f3a9b524af6012062fe037a6"),
	},
	{
		Family:     FamilyPBKDF2,
		ID:         "2",
		Label:      "RFC 6070 2 (HMAC-SHA1)",
		Algorithm:  tee.AlgPBKDF2HMACSHA1DeriveKey,
		Secret:     []byte("password"),
		Salt:       []byte("salt"),
		Iterations: 2,
		Expected:   mustHex("ea6c014dc72d6f8ccd1ed92ace1d41f0d8de8957"),
	},
	{
		Family:     FamilyPBKDF2,
		ID:         "3",
		Label:      "RFC 6070 3 (HMAC-SHA1)",
		Algorithm:  tee.AlgPBKDF2HMACSHA1DeriveKey,
		Secret:     []byte("password"),
		Salt:       []byte("salt"),
		Iterations: 4096,
		Expected:   mustHex("4b007901b765489abead49d926f721d065a429c1"),
	},
	{
		Family:     FamilyPBKDF2,
		ID:         "4",
		Label:      "RFC 6070 4 (HMAC-SHA1)",
		Algorithm:  tee.AlgPBKDF2HMACSHA1DeriveKey,
		Secret:     []byte("password"),
		Salt:       []byte("salt"),
		Iterations: 16777216,
		Expected:   mustHex("eefe3d61cd4da4e4e9945b3d6ba2158c2634e984"),
		Slow:       true,
	},
	{
		Family:     FamilyPBKDF2,
		ID:         "5",
		Label:      "RFC 6070 5 (HMAC-SHA1)",
		Algorithm:  tee.AlgPBKDF2HMACSHA1DeriveKey,
		Secret:     []byte("passwordPASSWORDpassword"),
		Salt:       []byte("saltSALTsaltSALTsaltSALTsaltSALTsalt"),
		Iterations: 4096,
		Expected:   mustHex("3d2eec4fe41c849b80c8d83662c0e44a8b291a964cf2f07038"),
	},
	{
		Family:     FamilyPBKDF2,
		ID:         "6",
		Label:      "RFC 6070 6 (HMAC-SHA1)",
		Algorithm:  tee.AlgPBKDF2HMACSHA1DeriveKey,
		Secret:     []byte("pass\x00word"),
		Salt:       []byte("sa\x00lt"),
		Iterations: 4096,
		Expected:   mustHex("56fa6aa75548099dcc37d7f03425e0c3"),
	},

	{
		Family:        FamilyScrypt,
		ID:            "1",
		Label:         "1",
		Algorithm:     tee.AlgScryptDeriveKey,
		Secret:        []byte{},
		Salt:          []byte{},
		N:             16,
		R:             1,
		P:             1,
		WorkingMemory: 2496,
		Expected: mustHex("77d6576238657b203b19ca42c18a0497" +
			"f16b4844e3074ae8dfdffa3fede21442" +
			"fcd0069ded0948f8326a753a0fc81f17" +
			"e8d3e0fb2e0d3628cf35e20c38d18906"),
	},
	{
		Family:        FamilyScrypt,
		ID:            "2",
		Label:         "2",
		Algorithm:     tee.AlgScryptDeriveKey,
		Secret:        []byte("letmein"),
		Salt:          []byte("12345"),
		N:             16,
		R:             1,
		P:             1,
		WorkingMemory: 2496,
		Expected: mustHex("beb985bccee1f9036f9b96106b2ca7ab" +
			"96b410e34199aa44090793b0da067b90" +
			"7619a719e2b67c219fd7feeaf7692e5d" +
			"fe926461f2e7ca320d71458aca316e0a"),
	},
	{
		Family:        FamilyScrypt,
		ID:            "3",
		Label:         "3",
		Algorithm:     tee.AlgScryptDeriveKey,
		Secret:        []byte("letmein"),
		Salt:          []byte("12345"),
		N:             16,
		R:             1,
		P:             8,
		WorkingMemory: 3392,
		Expected: mustHex("1cf138435cd621d2fbdde0b645fffef1" +
			"0a2ca098b2f6d296499b385427fbf5ff" +
			"9d55374d6ab8853a6b64eae0fe348fca" +
			"8b75b059cd90339a0612a8c3df440cd4"),
	},
	{
		Family:        FamilyScrypt,
		ID:            "4",
		Label:         "4",
		Algorithm:     tee.AlgScryptDeriveKey,
		Secret:        []byte("letmein"),
		Salt:          []byte("12345"),
		N:             16,
		R:             4,
		P:             8,
		WorkingMemory: 13376,
		Expected: mustHex("e0535348d887f9b515d11abb129cf184" +
			"d282932a9a037cd18f22314dc23e0163" +
			"c3281e2cc7f229b6820f42e71970564d" +
			"8e631ff222d57f31d9a77739dbb05214"),
	},
	{
		Family:        FamilyScrypt,
		ID:            "5",
		Label:         "5",
		Algorithm:     tee.AlgScryptDeriveKey,
		Secret:        []byte("mypassword"),
		Salt:          []byte("mysalt"),
		N:             4,
		R:             29,
		P:             1,
		WorkingMemory: 26048,
		Expected: mustHex("62156dc2bbc6c193f5de0a6bafa9595d" +
			"9fdd351701bae0f462f90a5367e1740a" +
			"5af5e901e33d5b081725c6f24d8cf274" +
			"ca4d6d93928b70bd428765841229cb69" +
			"33b66b39172df496faef6492d20a5b63" +
			"86d04c3afada269eda886b33c02ddb45" +
			"9dce5f114960e5fbcdd1b89f38f41a72" +
			"710946dba0935cad17b2331ea19bed96"),
	},
}

// Catalog returns every vector of family f in catalog order. Slow vectors
// are included only if slow is set. The returned vectors share their
// buffers with the catalog and must not be modified.
func Catalog(f Family, slow bool) []Vector {
	var out []Vector
	for _, v := range catalog {
		if v.Family != f || (v.Slow && !slow) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Lookup returns the vector id of family f.
func Lookup(f Family, id string) (Vector, error) {
	for _, v := range catalog {
		if v.Family == f && v.ID == id {
			return v, nil
		}
	}
	return Vector{}, fmt.Errorf("kdf: no %s vector %q", f, id)
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(fmt.Sprintf("kdf: bad vector literal %q: %v", s, err))
	}
	return b
}

// sequence returns the bytes from..to inclusive.
func sequence(from, to byte) []byte {
	out := make([]byte, 0, int(to)-int(from)+1)
	for b := int(from); b <= int(to); b++ {
		out = append(out, byte(b))
	}
	return out
}
