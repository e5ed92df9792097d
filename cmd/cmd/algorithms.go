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
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ostafen/cryptovol/internal/crypt"
	"github.com/spf13/cobra"
)

func DefineAlgorithmsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "algorithms",
		Short:        "List the supported cipher and KDF combinations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         RunAlgorithms,
	}
	return cmd
}

func RunAlgorithms(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CIPHER\tKEY SIZE\tKDF")

	ciphers := []crypt.CipherID{crypt.AESXTS}
	kdfs := []crypt.KDFID{crypt.PBKDF2SHA512, crypt.PBKDF2SHA256}

	for _, c := range ciphers {
		keySize, err := c.KeySize()
		if err != nil {
			return err
		}
		for _, k := range kdfs {
			fmt.Fprintf(w, "%s\t%d bytes\t%s\n", c, keySize, k)
		}
	}
	return w.Flush()
}
