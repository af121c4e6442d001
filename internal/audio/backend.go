// internal/audio/backend.go
package audio

import (
	"fmt"

	"github.com/gen2brain/malgo"
)

func initContext() (*malgo.AllocatedContext, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return ctx, nil
}

func freeContext(ctx **malgo.AllocatedContext) error {
	if *ctx == nil {
		return nil
	}
	if err := (*ctx).Uninit(); err != nil {
		return fmt.Errorf("uninit audio context: %w", err)
	}
	(*ctx).Free()
	*ctx = nil
	return nil
}

func listDevices(ctx *malgo.AllocatedContext, kind malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// deviceID resolves a configured device index; -1 selects the default (nil).
func deviceID(ctx *malgo.AllocatedContext, kind malgo.DeviceType, index int) (*malgo.DeviceID, error) {
	if index < 0 {
		return nil, nil
	}
	devices, err := listDevices(ctx, kind)
	if err != nil {
		return nil, err
	}
	if index >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (have %d devices)", index, len(devices))
	}
	return &devices[index].ID, nil
}

// DeviceNames lists capture and playback device names. It opens and frees
// its own backend context.
func DeviceNames() (capture, playback []string, err error) {
	ctx, err := initContext()
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = freeContext(&ctx) }()

	for _, k := range []struct {
		kind malgo.DeviceType
		dst  *[]string
	}{
		{malgo.Capture, &capture},
		{malgo.Playback, &playback},
	} {
		infos, err := listDevices(ctx, k.kind)
		if err != nil {
			return nil, nil, err
		}
		for _, info := range infos {
			*k.dst = append(*k.dst, info.Name())
		}
	}
	return capture, playback, nil
}
