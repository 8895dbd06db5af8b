/*
Copyright © 2021 the nc2atmodat authors.
This file is part of nc2atmodat.

nc2atmodat is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

nc2atmodat is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with nc2atmodat.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command nc2atmodat converts MITRAS/METRAS model output into
// ATMODAT-compliant NetCDF files.
package main

import (
	"fmt"
	"os"

	"github.com/atmodat/nc2atmodat/nc2atmodatutil"
)

func main() {
	if err := nc2atmodatutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
