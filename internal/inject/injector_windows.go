//go:build windows

package inject

import (
	"context"
	"errors"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ssss2art/qtmcp/internal/buildid"
	"github.com/ssss2art/qtmcp/internal/logging"
)

// injectAndResume drives spec §4.10's 11-step sequence against a suspended
// process, then resumes its initial thread regardless of outcome (fail-open,
// spec §7: an injection failure must not keep the child stopped).
func injectAndResume(ctx context.Context, pid uint32, probePath string, denyList []string) (err error) {
	proc, openErr := windows.OpenProcess(
		windows.PROCESS_CREATE_THREAD|windows.PROCESS_VM_OPERATION|windows.PROCESS_VM_WRITE|
			windows.PROCESS_VM_READ|windows.PROCESS_QUERY_INFORMATION,
		false, pid)
	if openErr != nil {
		return newError("target-not-found", openErr)
	}
	defer windows.CloseHandle(proc)

	if imagePath, imgErr := queryImagePath(proc); imgErr == nil && Denied(imagePath, denyList) {
		resumeInitialThread(pid)
		return nil
	}

	defer resumeInitialThread(pid)

	path := absOrSelf(probePath)
	pathBytes := append([]byte(path), 0)

	// 1. allocate writable remote memory sized to the path plus terminator.
	remoteAddr, allocErr := windows.VirtualAllocEx(proc, 0, uintptr(len(pathBytes)),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if allocErr != nil {
		return newError("remote-alloc", allocErr)
	}
	defer windows.VirtualFreeEx(proc, remoteAddr, 0, windows.MEM_RELEASE)

	// 2. write the path into that remote buffer.
	var written uintptr
	if writeErr := windows.WriteProcessMemory(proc, remoteAddr, &pathBytes[0], uintptr(len(pathBytes)), &written); writeErr != nil {
		return newError("remote-write", writeErr)
	}

	// 3. resolve LoadLibraryW in the target via kernel32, which loads at the
	// same base in every process on a given boot (no ASLR relocation for
	// this particular system DLL in practice).
	kernel32, modErr := windows.GetModuleHandle("kernel32.dll")
	if modErr != nil {
		return newError("remote-load", modErr)
	}
	loadLibraryAddr, procErr := windows.GetProcAddress(kernel32, "LoadLibraryW")
	if procErr != nil {
		return newError("remote-load", procErr)
	}

	// 4. spawn a remote thread whose entry is LoadLibraryW, argument is the
	// remote path.
	loaderThread, loaderTid, threadErr := windows.CreateRemoteThread(proc, nil, 0,
		loadLibraryAddr, remoteAddr, 0)
	if threadErr != nil {
		return newError("remote-load", threadErr)
	}
	_ = loaderTid
	defer windows.CloseHandle(loaderThread)

	// 5. wait for it with the 10s bounded timeout.
	if waitErr := waitWithTimeout(ctx, loaderThread); waitErr != nil {
		return newError("remote-thread-timeout", waitErr)
	}

	// 6. enumerate loaded modules to find the probe's remote base address.
	remoteBase, findErr := findRemoteModuleBase(pid, path)
	if findErr != nil {
		return newError("remote-load", findErr)
	}

	// 7. load the probe locally without running its initialiser, to find the
	// local address of qtmcpProbeInit.
	localModule, loadErr := windows.LoadLibraryEx(path, 0, windows.DONT_RESOLVE_DLL_REFERENCES)
	if loadErr != nil {
		return newError("remote-load", loadErr)
	}
	defer windows.FreeLibrary(localModule)

	localBase := uintptr(localModule)
	localInitAddr, initErr := windows.GetProcAddress(localModule, "qtmcpProbeInit")
	if initErr != nil {
		// The DLL may still self-initialise via its own load-time hook;
		// this is a warning, not a hard failure (spec §4.10).
		logging.L().Warn("inject: remote-init-missing, skipping remote init call: " + initErr.Error())
		return nil
	}

	// 7b. confirm the copy loaded locally for symbol resolution reports the
	// same build ID this process expects, since the offset arithmetic below
	// is only valid if the remote module has the identical layout (spec §9
	// "Cross-process code transplant"). qtmcpBuildID is a cgo-exported Go
	// function, not a data symbol, so it is called here directly in this
	// process (the module is already mapped locally by LoadLibraryEx above)
	// rather than read as raw memory.
	if buildIDFn, err := windows.GetProcAddress(localModule, "qtmcpBuildID"); err == nil {
		strPtr, _, _ := syscall.SyscallN(buildIDFn)
		if remoteID := readCString(strPtr); remoteID != "" && !buildid.Verify(remoteID) {
			return newError("build-id-mismatch", errBuildIDMismatch)
		}
	}

	// 8. compute the in-target address by offset arithmetic against the
	// remote base.
	offset := localInitAddr - localBase
	targetInitAddr := remoteBase + offset

	// 9. spawn a second remote thread at that entry.
	initThread, initTid, initThreadErr := windows.CreateRemoteThread(proc, nil, 0, targetInitAddr, 0, 0)
	if initThreadErr != nil {
		return newError("remote-load", initThreadErr)
	}
	_ = initTid
	defer windows.CloseHandle(initThread)

	if waitErr := waitWithTimeout(ctx, initThread); waitErr != nil {
		return newError("remote-thread-timeout", waitErr)
	}

	// 10. free the loader argument memory (deferred VirtualFreeEx above) and
	// release local handles (deferred FreeLibrary/CloseHandle above).
	// 11. resume the target's initial thread (deferred resumeInitialThread
	// above, which fires regardless of outcome).
	return nil
}

func waitWithTimeout(ctx context.Context, handle windows.Handle) error {
	deadline := remoteThreadTimeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining < deadline {
			deadline = remaining
		}
	}
	ms := uint32(deadline.Milliseconds())
	event, err := windows.WaitForSingleObject(handle, ms)
	if err != nil {
		return err
	}
	if event == uint32(windows.WAIT_TIMEOUT) {
		return errRemoteThreadTimedOut
	}
	return nil
}

var errRemoteThreadTimedOut = errors.New("remote thread wait exceeded deadline")

// findRemoteModuleBase walks pid's loaded-module snapshot looking for a
// module whose path matches probePath, returning its base address.
func findRemoteModuleBase(pid uint32, probePath string) (uintptr, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, pid)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Module32First(snapshot, &entry); err != nil {
		return 0, err
	}
	for {
		if modulePathMatches(entry, probePath) {
			return uintptr(unsafe.Pointer(entry.ModBaseAddr)), nil
		}
		if err := windows.Module32Next(snapshot, &entry); err != nil {
			break
		}
	}
	return 0, errModuleNotFound
}

var errModuleNotFound = errors.New("probe module not found in target's loaded-module snapshot")

var errBuildIDMismatch = errors.New("locally resolved probe build id does not match this process's build")

// readCString reads a NUL-terminated byte string starting at addr, which
// must point into this process's own address space (qtmcpBuildID is read
// from the copy LoadLibraryEx just mapped locally, not from the target).
func readCString(addr uintptr) string {
	if addr == 0 {
		return ""
	}
	const maxLen = 64 // UUIDs are 36 bytes; this bounds a corrupt/missing export
	buf := make([]byte, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		b := *(*byte)(unsafe.Pointer(addr + uintptr(i)))
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

func modulePathMatches(entry windows.ModuleEntry32, probePath string) bool {
	name := windows.UTF16ToString(entry.ExePath[:])
	return name == probePath
}

func queryImagePath(proc windows.Handle) (string, error) {
	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}

func resumeInitialThread(pid uint32) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ThreadEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Thread32First(snapshot, &entry); err != nil {
		return
	}
	for {
		if entry.OwnerProcessID == pid {
			if h, err := windows.OpenThread(windows.THREAD_SUSPEND_RESUME, false, entry.ThreadID); err == nil {
				windows.ResumeThread(h)
				windows.CloseHandle(h)
			}
			return
		}
		if err := windows.Thread32Next(snapshot, &entry); err != nil {
			return
		}
	}
}
