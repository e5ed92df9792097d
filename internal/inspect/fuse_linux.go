//go:build linux
// +build linux

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package inspect

import (
	"context"
	"os"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

// volumeEntryName is the single file a mounted volume exposes: the
// decrypted data area, suitable for a second, ordinary loop-mount to
// inspect the filesystem laid down inside it.
const volumeEntryName = "volume.img"

// volumeFS adapts the teacher's internal/fuse.RecoverFS shape, which
// exposes many carved files from byte ranges of a disk image, down to a
// single decrypted file backed by a *Volume instead of a raw
// io.ReaderAt over a plaintext disk.
type volumeFS struct {
	v *Volume
}

func (vfs *volumeFS) Root() (fs.Node, error) {
	return &inspectDir{vfs: vfs}, nil
}

type inspectDir struct {
	vfs *volumeFS
}

func (*inspectDir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *inspectDir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	if name != volumeEntryName {
		return nil, fuse.ENOENT
	}
	return &volumeFile{v: d.vfs.v}, nil
}

func (d *inspectDir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	return []fuse.Dirent{
		{Inode: 1, Name: volumeEntryName, Type: fuse.DT_File},
	}, nil
}

type volumeFile struct {
	v *Volume
}

func (f *volumeFile) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = f.v.DataAreaSize()
	a.Mtime = time.Now()
	return nil
}

func (f *volumeFile) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	size := req.Size
	if uint64(req.Offset) >= f.v.DataAreaSize() {
		resp.Data = []byte{}
		return nil
	}
	if remaining := f.v.DataAreaSize() - uint64(req.Offset); uint64(size) > remaining {
		size = int(remaining)
	}

	buf := make([]byte, size)
	n, err := f.v.ReadAt(buf, req.Offset)
	if err != nil && n == 0 {
		return err
	}
	resp.Data = buf[:n]
	return nil
}
