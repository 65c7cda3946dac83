package plantuml

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const (
	base64Alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
	plantumlAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

	// zlib 固定 2 字节头 + 4 字节 Adler-32 尾
	zlibHeaderLen  = 2
	zlibTrailerLen = 4
)

var (
	encodeTable = buildTable(base64Alphabet, plantumlAlphabet)
	decodeTable = buildTable(plantumlAlphabet, base64Alphabet)
)

func buildTable(from, to string) map[byte]byte {
	table := make(map[byte]byte, len(from))
	for i := 0; i < len(from); i++ {
		table[from[i]] = to[i]
	}
	return table
}

// Encode 将 PlantUML 文本编码为渲染服务使用的 URL 安全 token。
// 流程：zlib 压缩（默认级别）→ 去掉 zlib 头尾 → 标准 Base64 → 字母表替换，'=' 被丢弃。
func Encode(text string) string {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	// 写入 bytes.Buffer 不会失败
	_, _ = zw.Write([]byte(text))
	_ = zw.Close()

	compressed := buf.Bytes()
	payload := compressed[zlibHeaderLen : len(compressed)-zlibTrailerLen]

	b64 := base64.StdEncoding.EncodeToString(payload)

	var out strings.Builder
	out.Grow(len(b64))
	for i := 0; i < len(b64); i++ {
		if c, ok := encodeTable[b64[i]]; ok {
			out.WriteByte(c)
		}
	}
	return out.String()
}

// Decode 是 Encode 的逆过程，用于校验和调试。
func Decode(token string) (string, error) {
	b64 := make([]byte, len(token))
	for i := 0; i < len(token); i++ {
		c, ok := decodeTable[token[i]]
		if !ok {
			return "", fmt.Errorf("invalid character %q at offset %d", token[i], i)
		}
		b64[i] = c
	}

	payload, err := base64.RawStdEncoding.DecodeString(string(b64))
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 payload: %w", err)
	}

	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()

	text, err := io.ReadAll(fr)
	if err != nil {
		return "", fmt.Errorf("failed to inflate payload: %w", err)
	}
	return string(text), nil
}

// Renderer 负责拼接公共渲染服务的图片地址
type Renderer struct {
	ServerURL string
	Format    string
}

func NewRenderer(serverURL, format string) *Renderer {
	if format == "" {
		format = "svg"
	}
	return &Renderer{
		ServerURL: strings.TrimRight(serverURL, "/"),
		Format:    format,
	}
}

// URL 返回 <ServerURL>/<Format>/<token>
func (r *Renderer) URL(source string) string {
	token := Encode(source)
	u, err := url.JoinPath(r.ServerURL, r.Format, token)
	if err != nil {
		return r.ServerURL + "/" + r.Format + "/" + token
	}
	return u
}
