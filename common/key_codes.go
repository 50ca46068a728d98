package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87  // W key (ASCII), orbit up
	KeyA     = 65  // A key (ASCII), orbit left
	KeyS     = 83  // S key (ASCII), orbit down
	KeyD     = 68  // D key (ASCII), orbit right
	KeyG     = 71  // G key (ASCII), toggle grid pass
	KeyO     = 79  // O key (ASCII), toggle selection outline
	KeyR     = 82  // R key (ASCII), reset camera
	KeySpace = 32  // Spacebar (ASCII)
	KeyEsc   = 256 // Escape key (GLFW)
)
