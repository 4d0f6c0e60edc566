package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
)

// MaxFrameSize 单帧最大字节数
const MaxFrameSize = 4 << 20

// WriteFrame 写入 varint 长度前缀帧
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}
	buf := make([]byte, 0, varint.UvarintSize(uint64(len(data)))+len(data))
	buf = append(buf, varint.ToUvarint(uint64(len(data)))...)
	buf = append(buf, data...)
	_, err := w.Write(buf)
	return err
}

// ReadFrame 读取一帧
//
// 长度超过 MaxFrameSize 时返回 ErrFrameTooLarge，不读取帧体。
func ReadFrame(r *bufio.Reader) ([]byte, error) {
	size, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
