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

package volume

import (
	"fmt"

	"github.com/ostafen/cryptovol/internal/crypt"
)

// HeaderSet is the up to four ciphertext headers built for one format operation.
// Standard containers populate Decoy/BackupDecoy; hidden volumes populate
// neither (the genuine hidden header already lives in the outer container).
type HeaderSet struct {
	Primary      [HeaderEffectiveSize]byte
	Backup       [HeaderEffectiveSize]byte
	Decoy        *[HeaderEffectiveSize]byte
	BackupDecoy  *[HeaderEffectiveSize]byte
}

// BuildHeaders sequences the header-builder collaborator to produce the
// primary and backup headers (sharing one key set so either decrypts the
// volume identically) and, for standard containers, a pair of decoy hidden
// headers built from random bytes with their throwaway contexts discarded
// immediately (spec.md §4.2's header-build policy).
func BuildHeaders(p Parameters, layout Layout) (*HeaderSet, *CryptoContext, error) {
	base := crypt.BuildParams{
		Cipher:       p.Cipher,
		KDF:          p.KDF,
		PIM:          p.PIM,
		Password:     p.Password,
		DataOffset:   layout.DataOffset,
		DataAreaSize: layout.DataAreaSize,
		SectorSize:   p.SectorSize,
		HeaderFlags:  p.HeaderFlags,
	}
	if p.IsHidden {
		base.HiddenSize = p.Size
	}

	hs := &HeaderSet{}

	primaryCtx, err := crypt.BuildHeader(hs.Primary[:], base)
	if err != nil {
		return nil, nil, fmt.Errorf("volume: building primary header: %w", err)
	}

	backupParams := base
	backupParams.PresetMasterKeyData = primaryCtx.MasterKeyData
	backupParams.PresetK2 = primaryCtx.K2
	if _, err := crypt.BuildHeader(hs.Backup[:], backupParams); err != nil {
		primaryCtx.Burn()
		return nil, nil, fmt.Errorf("volume: building backup header: %w", err)
	}

	ctx := &CryptoContext{inner: primaryCtx}

	if !p.IsHidden {
		decoyParams := crypt.BuildParams{Cipher: p.Cipher, KDF: p.KDF}
		var decoy, backupDecoy [HeaderEffectiveSize]byte

		decoyCtx, err := crypt.BuildHeader(decoy[:], decoyParams)
		if err != nil {
			ctx.Burn()
			return nil, nil, fmt.Errorf("volume: building decoy hidden header: %w", err)
		}
		decoyCtx.Burn()

		backupDecoyCtx, err := crypt.BuildHeader(backupDecoy[:], decoyParams)
		if err != nil {
			ctx.Burn()
			return nil, nil, fmt.Errorf("volume: building backup decoy hidden header: %w", err)
		}
		backupDecoyCtx.Burn()

		hs.Decoy = &decoy
		hs.BackupDecoy = &backupDecoy
	}

	return hs, ctx, nil
}
