// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gnssdop

const (
	PI        = 3.1415926535897932  // Pi
	C         = 2.99792458e8        // Speed of light [m/s]
	Re        = 6378137.0           // Earth's radius [m]
	Fe        = 1.0 / 298.257223563 // Earth's flattening
	MuE       = 3.986005e14         // Earth gravitational constant [m^3/s^2]
	OmegaEDot = 7.2921151467e-5     // Earth rotation angular velocity [rad/s]
	WeekSec   = 604800.0            // Seconds in a GPS week
	TTrans    = 0.07                // Nominal signal transit time [s]
)
