package builder

import (
	"context"
	"fmt"

	"github.com/oshokin/jvm-assembler/internal/domain/image"
)

// Strategy supplies the platform-specific steps of a build.
type Strategy interface {
	// Platform is the platform this strategy builds for.
	Platform() image.Platform
	// BeforePack runs before the packaging executable.
	BeforePack(ctx context.Context, bc *BuildContext) error
	// PackArgs are appended to the common packaging arguments.
	PackArgs(bc *BuildContext) []string
	// PackEnv returns environment overrides for the packaging executable.
	// An error here aborts the build before anything is invoked.
	PackEnv(bc *BuildContext) (map[string]string, error)
	// PostPack runs after the packaging executable, before normalization.
	PostPack(ctx context.Context, bc *BuildContext) error
	// AfterPack runs on the normalized artifact.
	AfterPack(ctx context.Context, bc *BuildContext, artifact string) error
	// Close releases whatever the strategy acquired. It runs once, even when
	// a step failed.
	Close(ctx context.Context, bc *BuildContext) error
}

// hooks provides no-op defaults for optional Strategy steps.
type hooks struct{}

func (hooks) BeforePack(context.Context, *BuildContext) error { return nil }

func (hooks) PackEnv(*BuildContext) (map[string]string, error) { return nil, nil } //nolint:nilnil // No overrides.

func (hooks) PostPack(context.Context, *BuildContext) error { return nil }

func (hooks) AfterPack(context.Context, *BuildContext, string) error { return nil }

func (hooks) Close(context.Context, *BuildContext) error { return nil }

// StrategyFor returns the strategy for the platform.
func StrategyFor(platform image.Platform) (Strategy, error) {
	switch platform {
	case image.PlatformMac:
		return &Mac{}, nil
	case image.PlatformWindows:
		return &Windows{}, nil
	case image.PlatformLinux:
		return &Linux{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", image.ErrUnsupportedPlatform, platform)
	}
}
