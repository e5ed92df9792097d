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

	"github.com/ostafen/cryptovol/internal/inspect"
	"github.com/spf13/cobra"
)

func DefineInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "inspect <target>",
		Short:        "Unlock a formatted volume and check or mount it read-only",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInspect,
	}

	cmd.Flags().Int("pim", 0, "personal iterations multiplier used at format time")
	cmd.Flags().String("mount", "", "mount the decrypted volume read-only at this directory instead of just checking it")
	return cmd
}

func RunInspect(cmd *cobra.Command, args []string) error {
	targetPath := args[0]
	pim, _ := cmd.Flags().GetInt("pim")
	mountpoint, _ := cmd.Flags().GetString("mount")

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	defer zeroBytes(password)

	v, err := inspect.Open(targetPath, password, pim)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	defer v.Close()

	bs, _, err := v.BootSector()
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	fmt.Printf("Volume unlocked: data area %d bytes, sector size %d, volume label %q\n",
		v.DataAreaSize(), v.SectorSize(), bs.VolumeLabel())

	if mountpoint == "" {
		return nil
	}
	return inspect.Mount(mountpoint, v)
}
