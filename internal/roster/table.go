package roster

import "github.com/user/meshwatch/internal/model"

// defaultDevices is the deployed FAN 1.1 FSK field roster. Labels are the
// installed device names, poles the physical mounting points. The config
// file can override this table entirely.
var defaultDevices = []model.Device{
	{Label: "WN-L031-30", Address: "FD12:3456::B635:22FF:FE98:2537", Pole: "2"},
	{Label: "WN-L032-30", Address: "FD12:3456::B635:22FF:FE98:2523", Pole: "4"},
	{Label: "WN-L033-30", Address: "FD12:3456::B635:22FF:FE98:252B", Pole: "6"},
	{Label: "WN-L034-30", Address: "FD12:3456::62A4:23FF:FE37:A3B3", Pole: "18"},
	{Label: "WN-L035-30", Address: "FD12:3456::B635:22FF:FE98:285B", Pole: "PT21"},
	{Label: "WN-L036-30", Address: "FD12:3456::62A4:23FF:FE37:A3A1", Pole: "17C"},
	{Label: "WN-L037-30", Address: "FD12:3456::B635:22FF:FE98:2539", Pole: "17Z"},
	{Label: "WN-OF04-34", Address: "FD12:3456::B635:22FF:FE98:285C", Pole: "Faculty Quarter control Point"},
	{Label: "WN-L050-30", Address: "FD12:3456::92FD:9FFF:FEEE:9DF7", Pole: "65"},
	{Label: "WN-L051-30", Address: "FD12:3456::B635:22FF:FE98:285D", Pole: "20"},
	{Label: "WN-L038-30", Address: "FD12:3456::B635:22FF:FE98:253F", Pole: "22"},
	{Label: "WN-L039-30", Address: "FD12:3456::62A4:23FF:FE37:A3A8", Pole: "26"},
	{Label: "WN-L040-30", Address: "FD12:3456::B635:22FF:FE98:2541", Pole: "31"},
	{Label: "WN-L041-30", Address: "FD12:3456::B635:22FF:FE98:2529", Pole: "33"},
	{Label: "WN-L042-30", Address: "FD12:3456::62A4:23FF:FE37:A3AC", Pole: "35"},
	{Label: "WN-L043-30", Address: "FD12:3456::62A4:23FF:FE37:A39F", Pole: "37"},
	{Label: "WN-L044-30", Address: "FD12:3456::B635:22FF:FE98:2534", Pole: "39"},
	{Label: "WN-L045-30", Address: "FD12:3456::B635:22FF:FE98:2524", Pole: "41"},
	{Label: "WN-L047-30", Address: "FD12:3456::92FD:9FFF:FEEE:9D40", Pole: "83"},
	{Label: "WN-L048-30", Address: "FD12:3456::B635:22FF:FE98:29A6", Pole: "80"},
	{Label: "WN-L052-30", Address: "FD12:3456::62A4:23FF:FE37:A3AD", Pole: "FBG02"},
	{Label: "WN-L053-30", Address: "FD12:3456::B635:22FF:FE98:252C", Pole: "FBG04"},
	{Label: "WN-L054-30", Address: "FD12:3456::B635:22FF:FE98:251E", Pole: "FBG06"},
	{Label: "WN-VA24-30", Address: "FD12:3456::B635:22FF:FE98:253E", Pole: "Vindya A2 Terrace"},
	{Label: "WN-VA64-30", Address: "FD12:3456::B635:22FF:FE98:285E", Pole: "Vindya A6 Terrace"},
	{Label: "WN-VC44-30", Address: "FD12:3456::62A4:23FF:FE37:A3A9", Pole: "Vindya C4 Terrace"},
	{Label: "WN-NI04-34", Address: "FD12:3456::62A4:23FF:FE37:A3AB", Pole: "Nilgiri Control Point"},
	{Label: "WN-L059-34", Address: "FD12:3456::B635:22FF:FE98:29A5", Pole: "Football ground Control Point"},
}

// Default returns the built-in field roster.
func Default() *Roster {
	r, err := New(defaultDevices)
	if err != nil {
		// The built-in table is validated by tests; a bad entry is a bug.
		panic(err)
	}
	return r
}
