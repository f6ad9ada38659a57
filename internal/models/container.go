package models

import "fmt"

// ContainerType identifies the encrypted file family
type ContainerType string

const (
	ContainerUnknown     ContainerType = "unknown"
	ContainerZip         ContainerType = "zip"
	ContainerRar         ContainerType = "rar"
	Container7z          ContainerType = "7z"
	ContainerWord        ContainerType = "word"
	ContainerExcel       ContainerType = "excel"
	ContainerPowerPoint  ContainerType = "powerpoint"
	ContainerPDF         ContainerType = "pdf"
	ContainerSSH         ContainerType = "ssh"
	ContainerKeePass     ContainerType = "keepass"
	ContainerGPG         ContainerType = "gpg"
	ContainerBitLocker   ContainerType = "bitlocker"
	ContainerWiFi        ContainerType = "wifi"
	ContainerWiFiCapture ContainerType = "wifi-capture"
	ContainerShadow      ContainerType = "shadow"
)

// ContainerTypes lists every supported type
var ContainerTypes = []ContainerType{
	ContainerZip, ContainerRar, Container7z, ContainerWord, ContainerExcel, ContainerPowerPoint,
	ContainerPDF, ContainerSSH, ContainerKeePass, ContainerGPG, ContainerBitLocker,
	ContainerWiFi, ContainerWiFiCapture, ContainerShadow,
}

func (c ContainerType) String() string {
	return string(c)
}

// IsOffice is true for word, excel and powerpoint documents
func (c ContainerType) IsOffice() bool {
	return c == ContainerWord || c == ContainerExcel || c == ContainerPowerPoint
}

// Profile selects how much effort the planner spends
type Profile string

const (
	ProfileSimple   Profile = "simple"
	ProfileNormal   Profile = "normal"
	ProfileAdvanced Profile = "advanced"
)

// ParseProfile accepts the three profile names; empty means normal.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case "":
		return ProfileNormal, nil
	case ProfileSimple, ProfileNormal, ProfileAdvanced:
		return Profile(s), nil
	}
	return "", fmt.Errorf("unknown crack profile %q", s)
}

// AlgorithmID is the engine's hash mode number
type AlgorithmID int

func (a AlgorithmID) String() string {
	return fmt.Sprintf("%d", int(a))
}

// CanonicalHash is the extracted hash text and where it came from
type CanonicalHash struct {
	Value     string
	Container ContainerType
}
