// Package cpm implements the CP/M 2.2 personality layer: memory map and
// vector installation, BDOS/BIOS dispatch tables, and the supervisor loop
// that steps the CPU and answers system calls by trapping on the program
// counter.
package cpm

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/koron-go/z80"

	"github.com/skx/cpmemu/ccp"
	"github.com/skx/cpmemu/consolein"
	"github.com/skx/cpmemu/consoleout"
	"github.com/skx/cpmemu/fcb"
	"github.com/skx/cpmemu/memory"
)

// DefaultDMAAddress is where the DMA buffer lives until F_DMAOFF moves it.
const DefaultDMAAddress = 0x0080

// defaultBDOSAddress is where the BDOS entry-point is installed, unless
// overridden by the BDOS_ADDRESS environment variable.
const defaultBDOSAddress = 0xF800

// defaultBIOSAddress is where the sixteen-slot BIOS jump table begins.
const defaultBIOSAddress = 0xFF00

// biosTrapOffset is where the BIOS jump-table entries' single-byte traps
// live, relative to the BIOS base.
const biosTrapOffset = 0x80

// reservedBIOSVector is our custom "talk to the emulator" extension call.
const reservedBIOSVector = 31

var (
	// ErrBoot is returned when the guest has triggered a warm, or cold,
	// boot - either explicitly (P_TERMCPM) or by jumping to the reset
	// vector.
	ErrBoot = errors.New("BOOT")

	// ErrHalt is returned when the CPU has executed a HALT instruction.
	ErrHalt = errors.New("HALT")

	// ErrTimeout is returned when the context passed via WithContext
	// has a deadline, and that deadline has passed.
	ErrTimeout = errors.New("TIMEOUT")

	// ErrUnimplemented is returned when a BDOS/BIOS function-code has
	// no registered handler.
	ErrUnimplemented = errors.New("UNIMPLEMENTED")
)

// DefaultInputDriver is the console input driver used unless overridden
// with WithInputDriver.
var DefaultInputDriver = "stty"

// DefaultOutputDriver is the console output driver used unless overridden
// with WithOutputDriver.
var DefaultOutputDriver = "adm-3a"

// CPMHandlerType is the signature every BDOS/BIOS handler implements.
type CPMHandlerType func(cpm *CPM) error

// Handler describes one entry in a BDOS or BIOS dispatch table.
type Handler struct {
	// Desc is a human-readable name for the syscall, e.g. "F_WRITE".
	Desc string

	// Handler is invoked when the function-code is dispatched.
	Handler CPMHandlerType

	// Fake marks a handler that doesn't really do anything beyond
	// returning a plausible canned result - no host filesystem concept
	// backs it.
	Fake bool

	// Noisy marks a handler that's called so often (console I/O) that
	// call-tracing suppresses it by default.
	Noisy bool
}

// FileCache records the host file backing an open FCB. handle is nil for
// "virtual" files served from the embedded static filesystem, which are
// read-only and never actually opened on the host.
type FileCache struct {
	name   string
	handle *os.File
}

// CPM holds all the state for a single running emulation: the CPU and its
// memory, BDOS state (drives, DMA, user/drive number, open files, the
// directory-scan cursor), the console drivers, and the dispatch tables.
type CPM struct {
	// Memory is the 64KiB the emulated CPU executes against.
	Memory *memory.Memory

	// CPU is the Z80 core; it borrows Memory for the duration of a run.
	CPU z80.CPU

	// currentDrive is 0-15 (A-P).
	currentDrive uint8

	// userNumber is 0-15.
	userNumber uint8

	// dma is the address BDOS record I/O reads/writes through.
	dma uint16

	// drives maps a single upper-case drive letter to a host directory.
	drives map[string]string

	// files caches the open-file state behind each live FCB, keyed by
	// fcb.FCB.GetCacheKey().
	files map[string]FileCache

	// findFirstResults holds the outstanding matches of an in-progress
	// F_SFIRST/F_SNEXT directory scan; each F_SNEXT pops the head.
	findFirstResults []fcb.Find

	// input is the active console input driver.
	input *consolein.ConsoleIn

	// output is the active console output driver.
	output *consoleout.ConsoleOut

	// ccp names the flavour of CCP to load, from the ccp package registry.
	ccp string

	// static is the (possibly empty) embedded filesystem exposed
	// alongside the real host-mapped drives.
	static embed.FS

	// prnPath is the host file BDOS/BIOS printer output is appended to.
	prnPath string

	// simpleDebug toggles the custom "debug" BIOS extension flag.
	simpleDebug bool

	// log receives structured call-trace output.
	log *slog.Logger

	// launchTime is used by the Uptime syscall.
	launchTime time.Time

	// syscallErr records the error of the first failing port-based Out()
	// call; while it is set, further Out() calls do nothing.  It exists for direct unit testing of In/Out and isn't consulted
	// by the supervisor loop, which reads the handler's return value.
	syscallErr error

	// BDOSSyscalls and BIOSSyscalls are the function-code dispatch
	// tables, populated once by New.
	BDOSSyscalls map[uint8]Handler
	BIOSSyscalls map[uint8]Handler

	// bdosAddress and biosAddress are where the supervisor installs the
	// trap pages; bdosAddress may be overridden via BDOS_ADDRESS.
	bdosAddress uint16
	biosAddress uint16

	// startAddress is where the next Execute begins: 0x0100 for a
	// transient program, or the loaded CCP's entry point.
	startAddress uint16

	// ctx bounds how long a single Execute call may run.
	ctx context.Context
}

// Option configures a CPM instance at construction time.
type Option func(*CPM) error

// WithOutputDriver selects a named console output driver.
func WithOutputDriver(name string) Option {
	return func(cpm *CPM) error {
		driver, err := consoleout.New(name)
		if err != nil {
			return err
		}
		cpm.output = driver
		return nil
	}
}

// WithInputDriver selects a named console input driver.
func WithInputDriver(name string) Option {
	return func(cpm *CPM) error {
		driver, err := consolein.New(name)
		if err != nil {
			return err
		}
		cpm.input = driver
		return nil
	}
}

// WithCCP selects which bundled CCP flavour LoadCCP will load.
func WithCCP(name string) Option {
	return func(cpm *CPM) error {
		cpm.ccp = name
		return nil
	}
}

// WithHostExec configures the prefix that, when typed at the CCP prompt,
// runs the remainder of the line on the host instead of inside CP/M.
func WithHostExec(prefix string) Option {
	return func(cpm *CPM) error {
		cpm.input.SetSystemCommandPrefix(prefix)
		return nil
	}
}

// WithPrinterPath configures the host file that BDOS/BIOS printer output
// is appended to.
func WithPrinterPath(path string) Option {
	return func(cpm *CPM) error {
		cpm.prnPath = path
		return nil
	}
}

// WithContext bounds how long Execute is allowed to run for.
func WithContext(ctx context.Context) Option {
	return func(cpm *CPM) error {
		cpm.ctx = ctx
		return nil
	}
}

// New creates a CPM instance with the default console drivers, drive
// mapping, and dispatch tables, then applies the given options.
func New(opts ...Option) (*CPM, error) {

	cpm := &CPM{
		drives:       make(map[string]string),
		files:        make(map[string]FileCache),
		ccp:          "ccp",
		dma:          DefaultDMAAddress,
		bdosAddress:  defaultBDOSAddress,
		biosAddress:  defaultBIOSAddress,
		log:          slog.Default(),
		launchTime:   time.Now(),
		ctx:          context.Background(),
		BDOSSyscalls: bdosSyscalls(),
		BIOSSyscalls: biosSyscalls(),
	}

	// The BDOS load-address can be relocated via the environment, for
	// testing binaries that assume a non-default layout.
	if env := os.Getenv("BDOS_ADDRESS"); env != "" {
		if v, err := strconv.ParseUint(env, 0, 16); err == nil {
			cpm.bdosAddress = uint16(v)
		}
	}

	inDrv, err := consolein.New(DefaultInputDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create default input driver: %s", err)
	}
	cpm.input = inDrv

	outDrv, err := consoleout.New(DefaultOutputDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create default output driver: %s", err)
	}
	cpm.output = outDrv

	cpm.SetDrives(false)

	for _, o := range opts {
		if oErr := o(cpm); oErr != nil {
			return nil, oErr
		}
	}

	return cpm, nil
}

// GetInputDriver returns the active console input driver.
func (cpm *CPM) GetInputDriver() *consolein.ConsoleIn {
	return cpm.input
}

// GetOutputDriver returns the active console output driver.
func (cpm *CPM) GetOutputDriver() *consoleout.ConsoleOut {
	return cpm.output
}

// GetCCPName returns the name of the CCP flavour that LoadCCP will load.
func (cpm *CPM) GetCCPName() string {
	return cpm.ccp
}

// GetBDOSAddress returns the address BDOS is trapped at.
func (cpm *CPM) GetBDOSAddress() uint16 {
	return cpm.bdosAddress
}

// GetBIOSAddress returns the address the BIOS jump table starts at.
func (cpm *CPM) GetBIOSAddress() uint16 {
	return cpm.biosAddress
}

// IOSetup prepares the console drivers for use - typically putting the
// host terminal into raw mode.
func (cpm *CPM) IOSetup() error {
	if err := cpm.input.Setup(); err != nil {
		return err
	}
	return nil
}

// IOTearDown releases whatever IOSetup acquired. It is safe to call even
// if IOSetup was never called.
func (cpm *CPM) IOTearDown() error {
	return cpm.input.TearDown()
}

// LogNoisy disables the suppression of high-frequency (console I/O)
// syscalls from the call-trace log.
func (cpm *CPM) LogNoisy() {
	for k, v := range cpm.BDOSSyscalls {
		v.Noisy = false
		cpm.BDOSSyscalls[k] = v
	}
	for k, v := range cpm.BIOSSyscalls {
		v.Noisy = false
		cpm.BIOSSyscalls[k] = v
	}
}

// SetDrives maps all sixteen drive letters either onto the current working
// directory ("."), or onto subdirectories named after the letter itself.
func (cpm *CPM) SetDrives(useSubdirectories bool) {
	for i := 0; i < 16; i++ {
		letter := string(rune('A' + i))
		if useSubdirectories {
			cpm.drives[letter] = letter
		} else {
			cpm.drives[letter] = "."
		}
	}
}

// SetDrivePath overrides a single drive's host directory mapping.
func (cpm *CPM) SetDrivePath(drive string, path string) {
	cpm.drives[strings.ToUpper(drive)] = path
}

// SetStaticFilesystem sets the embedded filesystem served alongside the
// real, host-mapped, drives.
func (cpm *CPM) SetStaticFilesystem(content embed.FS) {
	cpm.static = content
}

// StuffText injects fake input ahead of anything the console would
// otherwise read, used to drive AUTOEXEC.SUB-style boot scripts.
func (cpm *CPM) StuffText(input string) {
	cpm.input.StuffInput(input)
}

// RunAutoExec arranges for either the given text, or (if empty) a
// "SUBMIT AUTOEXEC" command line, to be fed to the CCP on next read -
// provided SUBMIT.COM and AUTOEXEC.SUB both exist on the current drive.
func (cpm *CPM) RunAutoExec(extra string) {
	if extra != "" {
		cpm.StuffText(extra)
		return
	}

	dir, ok := cpm.drives[string(cpm.currentDrive+'A')]
	if !ok {
		dir = "."
	}

	submit := dir + string(os.PathSeparator) + "SUBMIT.COM"
	autoexec := dir + string(os.PathSeparator) + "AUTOEXEC.SUB"

	if _, err := os.Stat(submit); err != nil {
		return
	}
	if _, err := os.Stat(autoexec); err != nil {
		return
	}

	cpm.StuffText("SUBMIT AUTOEXEC\n")
}

// LoadBinary loads a .COM file at the transient program area (0x0100),
// ready to be launched as a fresh process via Execute.
func (cpm *CPM) LoadBinary(path string) error {
	if cpm.Memory == nil {
		cpm.Memory = new(memory.Memory)
	}

	if err := cpm.Memory.LoadFile(path); err != nil {
		return fmt.Errorf("failed to load %s: %s", path, err)
	}

	cpm.startAddress = 0x0100
	return nil
}

// LoadCCP resets RAM and loads the configured CCP flavour at its entry
// point, ready to be launched via Execute.
func (cpm *CPM) LoadCCP() error {
	entry, err := ccp.Get(cpm.ccp)
	if err != nil {
		return err
	}

	if cpm.Memory == nil {
		cpm.Memory = new(memory.Memory)
	}

	cpm.Memory.FillRange(0x0000, 0x10000, 0x00)
	cpm.Memory.SetRange(entry.Start, entry.Bytes...)

	cpm.startAddress = entry.Start
	return nil
}

// fixupRAM installs the zero-page vectors, the BDOS/BIOS trap pages, and
// the corresponding CPU breakpoints. It may be called directly by tests
// that want a minimal, runnable RAM image without going through Execute.
func (cpm *CPM) fixupRAM() {

	// 0x0000: warm-boot vector - JP to the BIOS's WBOOT trap, by way of
	// the BIOS jump table's second entry.
	cpm.Memory.Set(0x0000, 0xC3)
	cpm.Memory.SetU16(0x0001, cpm.biosAddress+3)

	// 0x0003/0x0004: IOBYTE and the packed user/drive byte.
	cpm.Memory.Set(0x0003, 0x00)
	cpm.Memory.Set(0x0004, (cpm.userNumber<<4)|cpm.currentDrive)

	// 0x0005: the classic "CALL 5" BDOS entry-point - JP to BDOS_BASE.
	cpm.Memory.Set(0x0005, 0xC3)
	cpm.Memory.SetU16(0x0006, cpm.bdosAddress)

	// BDOS_BASE: a bare RET, trapped by the supervisor before it runs.
	cpm.Memory.Set(cpm.bdosAddress, 0xC9)

	// BIOS jump table: sixteen three-byte JP entries, each leading to a
	// single-byte RET trap at BIOS_BASE+0x80.
	for i := uint16(0); i < 16; i++ {
		cpm.Memory.Set(cpm.biosAddress+i*3, 0xC3)
		cpm.Memory.SetU16(cpm.biosAddress+i*3+1, cpm.biosAddress+biosTrapOffset+i)
		cpm.Memory.Set(cpm.biosAddress+biosTrapOffset+i, 0xC9)
	}

	// Our custom extension vector is called directly, not through the
	// sixteen-entry table.
	cpm.Memory.Set(cpm.biosAddress+biosTrapOffset+reservedBIOSVector, 0xC9)

	cpm.CPU.Memory = cpm.Memory

	breakpoints := map[uint16]struct{}{
		cpm.bdosAddress: {},
	}
	for i := uint16(0); i < 16; i++ {
		breakpoints[cpm.biosAddress+biosTrapOffset+i] = struct{}{}
	}
	for vector := range cpm.BIOSSyscalls {
		breakpoints[cpm.biosAddress+biosTrapOffset+uint16(vector)] = struct{}{}
	}
	cpm.CPU.BreakPoints = breakpoints
}

// Execute runs the binary loaded by LoadBinary/LoadCCP until it boots,
// halts, times out, or hits an unrecoverable error.
func (cpm *CPM) Execute(args []string) error {
	if cpm.Memory == nil {
		cpm.Memory = new(memory.Memory)
	}

	cpm.fixupRAM()

	// Default FCB #1/#2: drive 0, name and type blanked with spaces.
	cpm.Memory.Set(0x005C, 0x00)
	cpm.Memory.FillRange(0x005C+1, 11, ' ')
	cpm.Memory.Set(0x006C, 0x00)
	cpm.Memory.FillRange(0x006C+1, 11, ' ')

	// Command tail: a length-prefixed Pascal string at 0x0080.
	cpm.Memory.Set(0x0080, 0x00)
	cpm.Memory.FillRange(0x0081, 31, 0x00)

	cli := strings.TrimSpace(strings.ToUpper(strings.Join(args, " ")))

	if len(args) > 0 {
		x := fcb.FromString(args[0])
		cpm.Memory.SetRange(0x005C, x.AsBytes()...)
	}
	if len(args) > 1 {
		x := fcb.FromString(args[1])
		cpm.Memory.SetRange(0x006C, x.AsBytes()...)
	}
	if len(cli) > 0 {
		cpm.Memory.Set(0x0080, uint8(len(cli)))
		cpm.Memory.SetRange(0x0081, []byte(cli)...)
	}

	cpm.CPU.PC = cpm.startAddress
	cpm.CPU.SP = 0xF07F
	cpm.Memory.SetU16(0xF07F, 0x0000)
	cpm.CPU.HALT = false

	for {
		err := cpm.CPU.Run(cpm.ctx)

		// No error: the CPU executed a HALT instruction.
		if err == nil {
			return ErrHalt
		}

		if cpm.ctx.Err() != nil {
			return ErrTimeout
		}

		if err != z80.ErrBreakPoint {
			return fmt.Errorf("unexpected error running CPU: %s", err)
		}

		pc := cpm.CPU.PC

		var callErr error
		switch {
		case pc == cpm.bdosAddress:
			callErr = cpm.dispatchBDOS()
		case pc >= cpm.biosAddress+biosTrapOffset && pc < cpm.biosAddress+biosTrapOffset+64:
			vector := uint8(pc - (cpm.biosAddress + biosTrapOffset))
			callErr = cpm.dispatchBIOS(vector)
		default:
			return fmt.Errorf("breakpoint hit at unexpected address 0x%04X", pc)
		}

		if callErr != nil {
			return callErr
		}

		// "Execute" the RET we installed at the trap: pop the return
		// address the CALL/JP pushed and resume there.
		cpm.CPU.PC = cpm.Memory.GetU16(cpm.CPU.SP)
		cpm.CPU.SP += 2
	}
}

// dispatchBDOS reads the function code from register C and invokes the
// matching handler, logging the call unless it's marked Noisy.
func (cpm *CPM) dispatchBDOS() error {
	fn := cpm.CPU.States.BC.Lo

	entry, ok := cpm.BDOSSyscalls[fn]
	if !ok {
		cpm.log.Error("unimplemented BDOS syscall",
			slog.Int("syscall", int(fn)))
		return ErrUnimplemented
	}

	if cpm.simpleDebug && !entry.Noisy {
		cpm.log.Info("BDOS",
			slog.String("name", entry.Desc),
			slog.Int("syscall", int(fn)))
	}

	return entry.Handler(cpm)
}

// dispatchBIOS invokes the handler registered for the given BIOS vector.
func (cpm *CPM) dispatchBIOS(vector uint8) error {
	entry, ok := cpm.BIOSSyscalls[vector]
	if !ok {
		cpm.log.Error("unimplemented BIOS syscall",
			slog.Int("syscall", int(vector)))
		return ErrUnimplemented
	}

	if cpm.simpleDebug && !entry.Noisy {
		cpm.log.Info("BIOS",
			slog.String("name", entry.Desc),
			slog.Int("syscall", int(vector)))
	}

	return entry.Handler(cpm)
}

// Out implements port-based dispatch: writing a BIOS vector number to port
// 0xFF, or any value to port 0xFE (the BDOS function code is then taken
// from register C), is an alternate way of reaching the BIOS/BDOS tables,
// kept for callers that drive CPM directly rather than through Execute's
// PC-trap mechanism. It mirrors dispatchBIOS/dispatchBDOS and records the
// result in syscallErr rather than returning it, since a Z80 OUT
// instruction has no return value.
func (cpm *CPM) Out(port uint8, value uint8) {
	if cpm.syscallErr != nil {
		return
	}

	switch port {
	case 0xFF:
		cpm.syscallErr = cpm.dispatchBIOS(value)
	case 0xFE:
		cpm.syscallErr = cpm.dispatchBDOS()
	}
}

// In implements the companion of Out. None of our syscalls are reached via
// port reads, so this always returns the same filler byte.
func (cpm *CPM) In(port uint8) uint8 {
	return 0xFF
}

func bdosSyscalls() map[uint8]Handler {
	return map[uint8]Handler{
		0:   {Desc: "P_TERMCPM", Handler: BdosSysCallExit},
		1:   {Desc: "C_READ", Handler: BdosSysCallReadChar, Noisy: true},
		2:   {Desc: "C_WRITE", Handler: BdosSysCallWriteChar, Noisy: true},
		3:   {Desc: "A_READ", Handler: BdosSysCallAuxRead},
		4:   {Desc: "A_WRITE", Handler: BdosSysCallAuxWrite},
		5:   {Desc: "L_WRITE", Handler: BdosSysCallPrinterWrite},
		6:   {Desc: "C_RAWIO", Handler: BdosSysCallRawIO, Noisy: true},
		7:   {Desc: "A_STATIN", Handler: BdosSysCallGetIOByte},
		8:   {Desc: "A_STATOUT", Handler: BdosSysCallSetIOByte},
		9:   {Desc: "C_WRITESTR", Handler: BdosSysCallWriteString, Noisy: true},
		10:  {Desc: "C_READSTR", Handler: BdosSysCallReadString, Noisy: true},
		11:  {Desc: "C_STAT", Handler: BdosSysCallConsoleStatus, Noisy: true},
		12:  {Desc: "S_BDOSVER", Handler: BdosSysCallBDOSVersion},
		13:  {Desc: "DRV_ALLRESET", Handler: BdosSysCallDriveAllReset},
		14:  {Desc: "DRV_SET", Handler: BdosSysCallDriveSet},
		15:  {Desc: "F_OPEN", Handler: BdosSysCallFileOpen},
		16:  {Desc: "F_CLOSE", Handler: BdosSysCallFileClose},
		17:  {Desc: "F_SFIRST", Handler: BdosSysCallFindFirst},
		18:  {Desc: "F_SNEXT", Handler: BdosSysCallFindNext},
		19:  {Desc: "F_DELETE", Handler: BdosSysCallDeleteFile},
		20:  {Desc: "F_READ", Handler: BdosSysCallRead},
		21:  {Desc: "F_WRITE", Handler: BdosSysCallWrite},
		22:  {Desc: "F_MAKE", Handler: BdosSysCallMakeFile},
		23:  {Desc: "F_RENAME", Handler: BdosSysCallRenameFile},
		24:  {Desc: "DRV_LOGINVEC", Handler: BdosSysCallLoginVec, Fake: true},
		25:  {Desc: "DRV_GET", Handler: BdosSysCallDriveGet},
		26:  {Desc: "F_DMAOFF", Handler: BdosSysCallSetDMA},
		27:  {Desc: "DRV_ALLOC", Handler: BdosSysCallDriveAlloc, Fake: true},
		28:  {Desc: "DRV_SETRO", Handler: BdosSysCallDriveSetRO, Fake: true},
		29:  {Desc: "DRV_ROVEC", Handler: BdosSysCallDriveROVec, Fake: true},
		30:  {Desc: "F_ATTRIB", Handler: BdosSysCallSetFileAttributes, Fake: true},
		31:  {Desc: "DRV_DPB", Handler: BdosSysCallGetDriveDPB, Fake: true},
		32:  {Desc: "F_USERNUM", Handler: BdosSysCallUserNumber},
		33:  {Desc: "F_READRAND", Handler: BdosSysCallReadRand},
		34:  {Desc: "F_WRITERAND", Handler: BdosSysCallWriteRand},
		35:  {Desc: "F_SIZE", Handler: BdosSysCallFileSize},
		36:  {Desc: "F_RANDREC", Handler: BdosSysCallRandRecord},
		37:  {Desc: "DRV_RESET", Handler: BdosSysCallDriveReset, Fake: true},
		38:  {Desc: "F_LOCK", Handler: BdosSysCallFileLock, Fake: true},
		41:  {Desc: "DRV_FLUSH", Handler: BdosSysCallDriveFlush, Fake: true},
		43:  {Desc: "F_TIMEDATE", Handler: BdosSysCallFileTimeDate, Fake: true},
		44:  {Desc: "T_GET", Handler: BdosSysCallTime, Fake: true},
		45:  {Desc: "F_ERRMODE", Handler: BdosSysCallErrorMode, Fake: true},
		50:  {Desc: "DIRECT_SCREEN", Handler: BdosSysCallDirectScreenFunctions, Fake: true},
		105: {Desc: "T_UPTIME", Handler: BdosSysCallUptime},
	}
}

func biosSyscalls() map[uint8]Handler {
	return map[uint8]Handler{
		0:  {Desc: "BOOT", Handler: BiosSysCallColdBoot},
		1:  {Desc: "WBOOT", Handler: BiosSysCallWarmBoot},
		2:  {Desc: "CONST", Handler: BiosSysCallConsoleStatus, Noisy: true},
		3:  {Desc: "CONIN", Handler: BiosSysCallConsoleInput, Noisy: true},
		4:  {Desc: "CONOUT", Handler: BiosSysCallConsoleOutput, Noisy: true},
		5:  {Desc: "LIST", Handler: BiosSysCallPrintChar},
		6:  {Desc: "LISTST", Handler: BiosSysCallPrinterStatus, Fake: true},
		7:  {Desc: "SCREENOUT", Handler: BiosSysCallScreenOutputStatus, Fake: true},
		8:  {Desc: "AUXINST", Handler: BiosSysCallAuxInputStatus, Fake: true},
		9:  {Desc: "AUXOUTST", Handler: BiosSysCallAuxOutputStatus, Fake: true},
		reservedBIOSVector: {Desc: "RESERVE1", Handler: BiosSysCallReserved1},
	}
}
