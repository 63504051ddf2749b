package models

import "github.com/pkg/errors"

// ErrShipmentNotFound — неизвестный трек-номер или order id.
var ErrShipmentNotFound = errors.New("shipment not found")
