package chain

import (
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"hash/crc32"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidPrincipal 表示 principal 文本格式非法或校验和不匹配
var ErrInvalidPrincipal = errors.New("invalid principal text")

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// decodePrincipal 解码 principal 文本，返回原始字节
// 文本格式：base32(crc32_be(payload) + payload)，按 5 字符分组以短横线连接
func decodePrincipal(text string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), "-", ""))
	if s == "" {
		return nil, ErrInvalidPrincipal
	}
	raw, err := principalEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPrincipal, err.Error())
	}
	if len(raw) < 5 || len(raw) > 4+29 {
		return nil, ErrInvalidPrincipal
	}
	payload := raw[4:]
	want := binary.BigEndian.Uint32(raw[:4])
	if crc32.ChecksumIEEE(payload) != want {
		return nil, errors.Wrap(ErrInvalidPrincipal, "checksum mismatch")
	}
	return payload, nil
}

// DepositAddress 将 principal 文本派生成 bytes32 存款地址（0x + 64 位十六进制）
// 布局：第 1 字节为 principal 长度，随后为 principal 原始字节，末尾补零
// 铸币账户在存款日志的 principal 主题里写入的就是这个值
func DepositAddress(principalText string) (string, error) {
	payload, err := decodePrincipal(principalText)
	if err != nil {
		return "", err
	}

	var b [32]byte
	b[0] = byte(len(payload))
	copy(b[1:], payload)

	return "0x" + hex.EncodeToString(b[:]), nil
}
