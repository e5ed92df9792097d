package volume

import (
	"errors"
	"fmt"
	"time"

	"github.com/ostafen/cryptovol/internal/crypt"
	"github.com/ostafen/cryptovol/internal/device"
	"github.com/ostafen/cryptovol/internal/fs"
	"github.com/ostafen/cryptovol/internal/logger"
	"github.com/ostafen/cryptovol/internal/volume/fat"
)

// state names the orchestrator's state machine (spec.md §4.7).
type state int

const (
	stateInit state = iota
	stateValidate
	stateAcquireTarget
	stateWritePrimaryHeader
	statePadHeaderTail
	stateFormatDataArea
	stateWriteBackupHeader
	stateWriteDecoyHiddenHeaders
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateValidate:
		return "validate"
	case stateAcquireTarget:
		return "acquire target"
	case stateWritePrimaryHeader:
		return "write primary header"
	case statePadHeaderTail:
		return "pad header tail"
	case stateFormatDataArea:
		return "format data area"
	case stateWriteBackupHeader:
		return "write backup header"
	case stateWriteDecoyHiddenHeaders:
		return "write decoy hidden headers"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Orchestrator drives one format operation end to end (spec.md §4.7): it
// validates Parameters, acquires a Target, derives a Layout, builds and
// writes headers, runs the Fill Engine, optionally bootstraps a FAT
// filesystem, and funnels every exit path — success or failure — through
// a single cleanup routine that burns key material and restores state.
type Orchestrator struct {
	params Parameters
	cb     Callbacks
	log    *logger.Logger

	state  state
	target device.Target
	layout Layout
	ctx    *CryptoContext
	sw     *SectorWriter
	pipe   *WritePipeline
}

// NewOrchestrator builds an Orchestrator for one format run.
func NewOrchestrator(p Parameters, cb Callbacks, log *logger.Logger) *Orchestrator {
	return &Orchestrator{params: p, cb: cb, log: log, state: stateInit}
}

// Run executes the state machine, returning a *Error on failure whose
// Code is the only thing callers are meant to surface to a user (spec.md
// §7). On any failure Run funnels through cleanup before returning.
func (o *Orchestrator) Run() (err error) {
	defer func() {
		if err != nil {
			var volErr *Error
			if !errors.As(err, &volErr) {
				err = wrap(OsError, err)
			}
			o.state = stateFailed
			o.cleanup(err)
		}
	}()

	o.state = stateValidate
	if err = o.validate(); err != nil {
		return err
	}

	o.state = stateAcquireTarget
	if err = o.acquireTarget(); err != nil {
		return err
	}

	o.layout, err = CalculateLayout(o.params)
	if err != nil {
		return err
	}

	var headers *HeaderSet
	headers, o.ctx, err = BuildHeaders(o.params, o.layout)
	if err != nil {
		return err
	}

	o.state = stateWritePrimaryHeader
	// A hidden volume's header goes alone into the outer container's
	// hidden-header slot; a standard container gets its whole header group.
	primaryOffset, leadingGroup := o.layout.PrimaryHeaderOffset, buildHeaderGroup(headers.Primary, headers.Decoy)
	if o.params.IsHidden {
		primaryOffset, leadingGroup = o.layout.HiddenHeaderOffset, headers.Primary[:]
	}
	if err = o.writeAt(primaryOffset, leadingGroup); err != nil {
		return err
	}

	o.state = statePadHeaderTail // leading group already carries its own padding; nothing further to do here

	mode, err := crypt.NewXTSMode(o.ctx.MasterKeyData(), o.ctx.K2())
	if err != nil {
		return wrap(ModeInitFailed, err)
	}

	o.state = stateFormatDataArea
	if err = o.formatDataArea(mode); err != nil {
		var volErr *Error
		if !o.params.InstantRetry && errors.As(err, &volErr) && volErr.Code == VolSizeWrong &&
			o.cb.Confirm != nil && o.cb.Confirm("retry-with-fat-quick") {
			o.cleanup(nil) // release this run's target before the retry reopens it
			o.target, o.pipe = nil, nil
			retry := NewOrchestrator(o.params, o.cb, o.log)
			retry.params.QuickFormat = true
			retry.params.InstantRetry = true
			return retry.Run()
		}
		return err
	}

	o.state = stateWriteBackupHeader
	backupOffset, trailingGroup := o.layout.BackupHeaderOffset, buildHeaderGroup(headers.Backup, headers.BackupDecoy)
	if o.params.IsHidden {
		backupOffset, trailingGroup = o.layout.BackupHiddenHeaderOffset, headers.Backup[:]
	}
	if err = o.writeAt(backupOffset, trailingGroup); err != nil {
		return err
	}

	o.state = stateWriteDecoyHiddenHeaders // folded into trailingGroup above

	o.state = stateDone
	o.cleanup(nil)
	return nil
}

func (o *Orchestrator) validate() error {
	if o.params.TargetPath == "" {
		return wrap(ParameterIncorrect, fmt.Errorf("volume: empty target path"))
	}
	if o.params.SectorSize == 0 {
		o.params.SectorSize = MinSectorSize
	}
	if o.params.InstantRetry && !o.params.QuickFormat {
		return wrap(ParameterIncorrect, fmt.Errorf("volume: instant retry is only valid for a quick format"))
	}
	return nil
}

func (o *Orchestrator) acquireTarget() error {
	isDevice := o.params.TargetKind == KindDevice

	if isDevice {
		o.warnIfPartitioned()
	}

	target, err := device.Open(o.params.TargetPath, isDevice, o.params.Sparse)
	if err != nil {
		return wrap(OsError, err)
	}
	o.target = target

	mounted, err := target.IsMounted()
	if err == nil && mounted {
		if o.cb.Confirm == nil || !o.cb.Confirm("dismount-existing-filesystem") {
			_ = target.Close()
			return wrap(VolMountFailed, fmt.Errorf("volume: target is mounted and dismounting was not confirmed"))
		}
		if err := target.Dismount(); err != nil {
			_ = target.Close()
			return wrap(VolMountFailed, err)
		}
	}

	if isDevice {
		if o.params.Size == 0 {
			size, err := target.Size()
			if err != nil {
				return wrap(OsError, err)
			}
			o.params.Size = size
		}
		if err := target.AllowExtendedDASD(); err != nil {
			o.log.Warnf("could not enable extended DASD I/O: %v", err)
		}
	} else if !o.params.IsHidden {
		size := o.params.Size
		if o.params.AllowFastCreate {
			if err := target.SetValidDataLength(size); err != nil {
				o.log.Warnf("fast create unavailable, falling back to zero-fill preallocation: %v", err)
				if err := target.Preallocate(size); err != nil {
					return wrap(OsError, err)
				}
			}
		} else if err := target.Preallocate(size); err != nil {
			return wrap(OsError, err)
		}
	}
	return nil
}

// warnIfPartitioned gives the operator a heads-up that a device already
// carries a partition table before the rest of AcquireTarget overwrites
// it; best-effort only, since a device that can't be read here will fail
// loudly a moment later in device.Open anyway.
func (o *Orchestrator) warnIfPartitioned() {
	f, err := fs.Open(o.params.TargetPath)
	if err != nil {
		return
	}
	defer f.Close()

	firstSector := make([]byte, 512)
	if _, err := f.ReadAt(firstSector, 0); err != nil {
		return
	}
	if has, err := device.HasExistingPartitionTable(firstSector); err == nil && has {
		o.log.Warnf("%s already has a partition table; it will be overwritten", o.params.TargetPath)
	}
}

func (o *Orchestrator) writeAt(offset uint64, data []byte) error {
	if err := o.target.Seek(int64(offset)); err != nil {
		return wrap(OsError, err)
	}
	if _, err := o.target.Write(data); err != nil {
		return wrap(OsError, err)
	}
	return nil
}

// buildHeaderGroup lays a header and, for standard containers, its decoy
// hidden-volume header into one HeaderGroupSize-byte buffer: the header
// at the start, the decoy at HiddenHeaderOffset, and zero padding
// everywhere else (spec.md §3). Writing the whole group in one shot
// avoids ordering bugs between the header write and the padding write.
func buildHeaderGroup(header [HeaderEffectiveSize]byte, decoy *[HeaderEffectiveSize]byte) []byte {
	group := make([]byte, HeaderGroupSize)
	copy(group, header[:])
	if decoy != nil {
		copy(group[HiddenHeaderOffset:], decoy[:])
	}
	return group
}

func (o *Orchestrator) formatDataArea(mode crypt.Mode) error {
	var progressCb Progress
	if o.cb.Progress != nil {
		progressCb = o.cb.Progress
	}

	if err := o.target.Seek(int64(o.layout.DataOffset)); err != nil {
		return wrap(OsError, err)
	}

	o.sw = NewSectorWriter(mode, o.target, o.params.SectorSize, o.layout.StartSector, int64(o.layout.DataAreaSize), progressCb, o.log)

	if o.params.TargetKind == KindDevice {
		o.pipe = NewWritePipeline(o.target, FormatWriteBufferSize)
		o.pipe.Start()
		o.sw.UseSink(o.pipe)
	}

	if err := FillDataArea(o.sw, o.layout.NumSectors, o.params.SectorSize, o.params.QuickFormat); err != nil {
		return err
	}

	if o.pipe != nil {
		if err := o.pipe.Stop(); err != nil {
			return wrap(OsError, err)
		}
	}

	if o.params.Filesystem == FilesystemFAT {
		return o.bootstrapFAT(mode)
	}
	return nil
}

// bootstrapFAT lays down a minimal FAT filesystem over the just-filled
// data area. A failure here is the retry edge of spec.md §4.7: the
// external-formatter-equivalent step failed, so the caller may choose to
// retry the whole operation with a quick format instead (instant_retry).
func (o *Orchestrator) bootstrapFAT(mode crypt.Mode) error {
	params, err := fat.Calculate(o.layout.NumSectors, o.params.SectorSize, o.params.ClusterSize)
	if err != nil {
		return wrap(VolSizeWrong, err)
	}

	boot, err := fat.BuildBootSector(params, uint32(time.Now().UnixNano()))
	if err != nil {
		return wrap(OsError, err)
	}

	if err := o.target.Seek(int64(o.layout.DataOffset)); err != nil {
		return wrap(OsError, err)
	}
	sw := NewSectorWriter(mode, o.target, o.params.SectorSize, o.layout.StartSector, 0, nil, o.log)
	if err := sw.WriteSector(boot); err != nil {
		return wrap(OsError, err)
	}

	// The boot sector's own Reserved field promises ReservedSectors sectors
	// before the FAT area (FSInfo sector, backup boot sector, and padding
	// for FAT32); write the remainder as zeros so the on-disk layout
	// matches what was just declared.
	if params.ReservedSectors > 1 {
		reserved := make([]byte, (uint64(params.ReservedSectors)-1)*uint64(o.params.SectorSize))
		if err := sw.WriteSector(reserved); err != nil {
			return wrap(OsError, err)
		}
	}

	table := fat.BuildFATTable(params)
	if err := sw.WriteSector(table); err != nil {
		return wrap(OsError, err)
	}
	if err := sw.WriteSector(table); err != nil { // second FAT copy
		return wrap(OsError, err)
	}
	if params.Type == fat.FAT32 {
		// FAT32's root directory is cluster 2, the first cluster after the
		// FAT area; write it as zeros so the new root directory is empty.
		if err := sw.WriteSector(make([]byte, params.ClusterSizeBytes)); err != nil {
			return wrap(OsError, err)
		}
	}
	if params.RootDirEntries > 0 {
		root := fat.BuildRootDirectory(params)
		if err := sw.WriteSector(root); err != nil {
			return wrap(OsError, err)
		}
	}
	return sw.Flush()
}

// cleanup is the single funneled exit path (spec.md §7): it always burns
// key material, and on failure additionally truncates a freshly created
// file-backed target back to zero so no partial ciphertext is left
// behind looking like a real volume.
func (o *Orchestrator) cleanup(cause error) {
	o.ctx.Burn()
	if o.pipe != nil {
		_ = o.pipe.Stop()
	}
	if o.target == nil {
		return
	}
	if cause != nil && o.params.TargetKind == KindFile && !o.params.IsHidden {
		if err := o.target.TruncateToZero(); err != nil {
			o.log.Warnf("cleanup: could not truncate failed target to zero: %v", err)
		}
	}
	if err := o.target.Close(); err != nil {
		o.log.Warnf("cleanup: could not close target: %v", err)
	}
}
