package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"
)

const resolvConf = `# Generated by archbox
nameserver 8.8.8.8
nameserver 8.8.4.4
nameserver 1.1.1.1
`

const mirrorlist = `# Arch Linux ARM mirrors
# Generated by archbox

Server = http://mirror.archlinuxarm.org/$arch/$repo
Server = https://archlinuxarm.org/$arch/$repo
`

// configure writes the files the guest needs before its first boot: DNS
// resolution, a pacman mirrorlist, and the proot launch script. All
// writes are idempotent; rerunning configure on an installed tree is
// harmless.
func (m *Manager) configure() error {
	rootfs := m.RootfsDir()

	if err := writeConfigFile(filepath.Join(rootfs, "etc", "resolv.conf"), resolvConf); err != nil {
		return err
	}
	if err := writeConfigFile(filepath.Join(rootfs, "etc", "pacman.d", "archlinuxarm-mirrorlist"), mirrorlist); err != nil {
		return err
	}
	return m.writeLaunchScript()
}

func writeConfigFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeLaunchScript emits the script that enters the guest through proot,
// binding the host's device and storage trees into it.
func (m *Manager) writeLaunchScript() error {
	path := m.LaunchScriptPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create script dir: %w", err)
	}

	base := m.cfg.BaseDir
	script := fmt.Sprintf(`#!%[1]s/bin/bash
# archbox launch script

ROOTFS=%[2]s
PROOT=%[1]s/bin/proot
HOMEDIR=%[1]s/home

export HOME=/root
export TERM=xterm-256color
export PATH=/usr/local/sbin:/usr/local/bin:/usr/bin:/usr/sbin:/sbin:/bin:/opt/bin
export TMPDIR=/tmp
export SHELL=/bin/bash
export USER=root
export LOGNAME=root

export LANG=C.UTF-8
export LC_ALL=C.UTF-8

if [ ! -f "$ROOTFS/etc/resolv.conf" ]; then
    cat > "$ROOTFS/etc/resolv.conf" << 'EOF'
# Generated by archbox
nameserver 8.8.8.8
nameserver 8.8.4.4
nameserver 1.1.1.1
EOF
fi

mkdir -p "$HOMEDIR"
mkdir -p /tmp
mkdir -p /var/log

exec $PROOT \
    --link2symlink \
    -0 \
    -r $ROOTFS \
    -b /dev \
    -b /proc \
    -b /sys \
    -b $HOMEDIR:/root \
    -b /storage:/storage \
    -b /sdcard:/sdcard \
    -b /cache:/cache \
    -w /root \
    /bin/bash --login +h
`, base, m.RootfsDir())

	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return fmt.Errorf("write launch script: %w", err)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		logger.Warn("chmod launch script failed", "path", path, "err", err)
	}
	return nil
}
