package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	notifyDest  = "org.freedesktop.Notifications"
	notifyPath  = "/org/freedesktop/Notifications"
	notifyIface = "org.freedesktop.Notifications"
)

// desktopNotification is one interview status bubble. ReplaceID 0 asks the
// server for a new bubble; otherwise the existing one is updated in place.
type desktopNotification struct {
	AppName   string
	ReplaceID uint32
	Summary   string
	TimeoutMS int
}

// desktopNotify shows n through the session bus and returns the bubble ID.
func desktopNotify(ctx context.Context, n desktopNotification) (uint32, error) {
	reply, err := busctl(ctx, "Notify", "susssasa{sv}i",
		n.AppName,
		strconv.FormatUint(uint64(n.ReplaceID), 10),
		"", // icon
		n.Summary,
		"", // body
		"0",
		"0",
		strconv.Itoa(n.TimeoutMS),
	)
	if err != nil {
		return 0, err
	}

	kind, value, ok := strings.Cut(reply, " ")
	if !ok || kind != "u" {
		return 0, fmt.Errorf("busctl Notify: unexpected reply %q", reply)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("busctl Notify: notification id %q: %w", value, err)
	}
	return uint32(id), nil
}

// desktopDismiss closes the bubble with the given ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	_, err := busctl(ctx, "CloseNotification", "u", strconv.FormatUint(uint64(id), 10))
	return err
}

// busctl calls method on the notification service and returns the trimmed reply.
func busctl(ctx context.Context, method, signature string, args ...string) (string, error) {
	argv := append([]string{"--user", "call", notifyDest, notifyPath, notifyIface, method, signature}, args...)
	out, err := exec.CommandContext(ctx, "busctl", argv...).CombinedOutput()
	reply := strings.TrimSpace(string(out))
	if err != nil {
		if reply == "" {
			return "", fmt.Errorf("busctl %s: %w", method, err)
		}
		return "", fmt.Errorf("busctl %s: %w (%s)", method, err, reply)
	}
	return reply, nil
}
