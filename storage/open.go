//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoETL.
//
// GoETL is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoETL is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoETL. If not, see https://www.gnu.org/licenses/.

package storage

import (
	"context"
	"fmt"
)

// Open builds the Store for a location. S3 options are ignored for local locations.
func Open(ctx context.Context, loc Location, s3opts ...S3Option) (Store, error) {
	switch loc.Scheme {
	case SchemeLocal:
		return NewLocalStore(loc.Prefix), nil
	case SchemeS3:
		return NewS3Store(ctx, loc, s3opts...)
	default:
		return nil, &StoreError{Op: "open_store", Err: fmt.Errorf("unsupported scheme %q", loc.Scheme)}
	}
}
