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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ostafen/cryptovol/internal/crypt"
	"github.com/ostafen/cryptovol/internal/logger"
	"github.com/ostafen/cryptovol/internal/volume"
	futil "github.com/ostafen/cryptovol/pkg/util/format"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func DefineFormatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "format <target>",
		Short:        "Format a file or device as an encrypted volume",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunFormat,
	}

	cmd.Flags().String("size", "", "container size (e.g. 100MB, 4GiB); required unless --device")
	cmd.Flags().Bool("device", false, "target is a raw block device, not a regular file")
	cmd.Flags().Bool("quick", false, "skip filling the data area with encrypted random data")
	cmd.Flags().String("filesystem", "fat", "filesystem to lay down after formatting: fat, none")
	cmd.Flags().String("cluster-size", "0", "FAT cluster size (0 = computed automatically)")
	cmd.Flags().Uint32("sector-size", 512, "host sector size in bytes")
	cmd.Flags().String("cipher", "aes-xts", "cipher: aes-xts")
	cmd.Flags().String("kdf", "sha512", "KDF hash: sha512, sha256")
	cmd.Flags().Int("pim", 0, "personal iterations multiplier (0 = default iteration count)")
	cmd.Flags().Bool("hidden", false, "create a hidden volume inside an existing container")
	cmd.Flags().String("hidden-size", "", "inner size of the hidden volume (requires --hidden)")
	cmd.Flags().Bool("sparse", false, "create a sparse file instead of zero-filling on preallocation")
	cmd.Flags().Bool("fast-create", false, "assert valid data length instead of zero-filling on preallocation")
	cmd.Flags().Bool("yes", false, "assume yes to all confirmation prompts")
	cmd.Flags().String("log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")

	return cmd
}

func RunFormat(cmd *cobra.Command, args []string) error {
	targetPath := args[0]

	isDevice, _ := cmd.Flags().GetBool("device")
	quick, _ := cmd.Flags().GetBool("quick")
	fsName, _ := cmd.Flags().GetString("filesystem")
	clusterSizeStr, _ := cmd.Flags().GetString("cluster-size")
	sectorSize, _ := cmd.Flags().GetUint32("sector-size")
	cipherName, _ := cmd.Flags().GetString("cipher")
	kdfName, _ := cmd.Flags().GetString("kdf")
	pim, _ := cmd.Flags().GetInt("pim")
	hidden, _ := cmd.Flags().GetBool("hidden")
	hiddenSizeStr, _ := cmd.Flags().GetString("hidden-size")
	sparse, _ := cmd.Flags().GetBool("sparse")
	fastCreate, _ := cmd.Flags().GetBool("fast-create")
	assumeYes, _ := cmd.Flags().GetBool("yes")
	logLevel, _ := cmd.Flags().GetString("log-level")

	sizeStr, _ := cmd.Flags().GetString("size")
	size, err := parseSizeFlag(sizeStr, isDevice)
	if err != nil {
		return err
	}

	var hiddenSize uint64
	if hidden {
		hiddenSize, err = futil.ParseBytes(hiddenSizeStr)
		if err != nil {
			return fmt.Errorf("format: invalid --hidden-size: %w", err)
		}
	}

	fs, err := parseFilesystem(fsName)
	if err != nil {
		return err
	}

	cipher, err := parseCipher(cipherName)
	if err != nil {
		return err
	}

	kdf, err := parseKDF(kdfName)
	if err != nil {
		return err
	}

	clusterSize, err := futil.ParseBytes(clusterSizeStr)
	if err != nil {
		return fmt.Errorf("format: invalid --cluster-size: %w", err)
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	defer zeroBytes(password)

	kind := volume.KindFile
	if isDevice {
		kind = volume.KindDevice
	}

	hostSize := size
	if hidden {
		size = hiddenSize
	}

	params := volume.Parameters{
		TargetPath:      targetPath,
		TargetKind:      kind,
		Size:            size,
		IsHidden:        hidden,
		HiddenHostSize:  hostSize,
		Filesystem:      fs,
		QuickFormat:     quick,
		ClusterSize:     clusterSizeInSectors(clusterSize, sectorSize),
		SectorSize:      sectorSize,
		Cipher:          cipher,
		KDF:             kdf,
		PIM:             pim,
		Password:        password,
		AllowFastCreate: fastCreate,
		Sparse:          sparse,
	}

	log := logger.New(os.Stdout, logger.ParseLevel(logLevel))

	cb := volume.Callbacks{
		Confirm: func(dialogID string) bool {
			if assumeYes {
				return true
			}
			return confirmPrompt(dialogID)
		},
		Progress: func(bytesDone int64) bool {
			return true
		},
	}

	orch := volume.NewOrchestrator(params, cb, log)
	if err := orch.Run(); err != nil {
		return fmt.Errorf("format: %w", err)
	}

	fmt.Printf("%s formatted successfully.\n", targetPath)
	return nil
}

func parseSizeFlag(s string, isDevice bool) (uint64, error) {
	if s == "" {
		if isDevice {
			return 0, nil // device size is read from the device itself
		}
		return 0, fmt.Errorf("format: --size is required for a file-backed target")
	}
	return futil.ParseBytes(s)
}

func clusterSizeInSectors(clusterBytes uint64, sectorSize uint32) uint32 {
	if clusterBytes == 0 || sectorSize == 0 {
		return 0
	}
	return uint32(clusterBytes / uint64(sectorSize))
}

func parseFilesystem(s string) (volume.Filesystem, error) {
	switch strings.ToLower(s) {
	case "fat", "fat32", "fat16":
		return volume.FilesystemFAT, nil
	case "none":
		return volume.FilesystemNone, nil
	default:
		return 0, fmt.Errorf("format: unsupported --filesystem %q", s)
	}
}

func parseCipher(s string) (crypt.CipherID, error) {
	switch strings.ToLower(s) {
	case "aes-xts", "aes", "xts":
		return crypt.AESXTS, nil
	default:
		return 0, fmt.Errorf("format: unsupported --cipher %q", s)
	}
}

func parseKDF(s string) (crypt.KDFID, error) {
	switch strings.ToLower(s) {
	case "sha512", "pbkdf2-sha512":
		return crypt.PBKDF2SHA512, nil
	case "sha256", "pbkdf2-sha256":
		return crypt.PBKDF2SHA256, nil
	default:
		return 0, fmt.Errorf("format: unsupported --kdf %q", s)
	}
}

// readPassword prompts on the terminal without echo when stdin is a TTY,
// falling back to a plain line read otherwise (scripted/CI invocations).
func readPassword(cmd *cobra.Command) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("format: reading password: %w", err)
		}
		return pw, nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, fmt.Errorf("format: reading password: %w", err)
	}
	return []byte(strings.TrimRight(line, "\r\n")), nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func confirmPrompt(dialogID string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", dialogID)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
