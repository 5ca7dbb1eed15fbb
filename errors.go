package docstream

import "github.com/horockey/docstream/internal/model"

type (
	KeyNotFoundError  = model.KeyNotFoundError
	StreamClosedError = model.StreamClosedError
)
