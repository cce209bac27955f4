package notification

import "tapbook/internal/pkg/apperr"

var ErrNotFound = apperr.New(apperr.KindNotFound, "NOT_FOUND", "notification not found")
