// Package spimem is a driver for 25-series SPI NOR flash and EEPROM devices
// in Go.
//
// It speaks the common 25-series command set (READ, PAGE PROGRAM, SECTOR,
// BLOCK and CHIP ERASE, READ STATUS, WRITE ENABLE/DISABLE, READ JEDEC ID and
// READ SFDP) over any bus implementing HAL. One Dev serves every supported
// chip variant; the differences between variants (address width, page,
// sector and block sizes) are carried by a Geometry value.
//
// The driver issues exactly the operations requested. It does not cache,
// buffer, retry or level wear.
//
// Copyright (c) 2024 Northvolt AB and the spimem authors.
//
// # Datasheets
//
// Winbond W25Q128JV, 8.1.2 Instruction Set Table 1.
// https://www.winbond.com/resource-files/w25q128jv%20revf%2003272018%20plus.pdf
//
// Micron N25Q032A, Table 16: Command Set.
//
// JEDEC JESD216, Serial Flash Discoverable Parameters.
package spimem
