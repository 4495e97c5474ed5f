package scene

import "errors"

var (
	// ErrSceneNotFound indicates an id that is not in the store.
	ErrSceneNotFound = errors.New("scene: scene not found")

	// ErrShapeNotFound indicates a shape id that is not in the scene.
	ErrShapeNotFound = errors.New("scene: shape not found")

	ErrUnknownKind  = errors.New("scene: unknown shape kind")
	ErrInvalidShape = errors.New("scene: invalid shape geometry")
)
