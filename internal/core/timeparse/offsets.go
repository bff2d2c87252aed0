package timeparse

import "time"

const hour = time.Hour

// Offsets maps timezone abbreviations to their UTC offset.
type Offsets map[string]time.Duration

// DefaultOffsets returns the abbreviation table used to resolve zone names
// found in legacy timestamps. Ambiguous abbreviations (IST, CST, BST...) are
// pinned to a single offset.
func DefaultOffsets() Offsets {
	return Offsets{
		"A":     hour,
		"ACDT":  10*hour + 30*time.Minute,
		"ACST":  9*hour + 30*time.Minute,
		"ACT":   -5*hour,
		"ACWST": 8*hour + 45*time.Minute,
		"ADT":   4*hour,
		"AEDT":  11*hour,
		"AEST":  10*hour,
		"AET":   10*hour,
		"AFT":   4*hour + 30*time.Minute,
		"AKDT":  -8*hour,
		"AKST":  -9*hour,
		"ALMT":  6*hour,
		"AMST":  -3*hour,
		"AMT":   -4*hour,
		"ANAST": 12*hour,
		"ANAT":  12*hour,
		"AQTT":  5*hour,
		"ART":   -3*hour,
		"AST":   3*hour,
		"AT":    -4*hour,
		"AWDT":  9*hour,
		"AWST":  8*hour,
		"AZOST": 0,
		"AZOT":  -hour,
		"AZST":  5*hour,
		"AZT":   4*hour,
		"AoE":   -12*hour,
		"B":     2*hour,
		"BNT":   8*hour,
		"BOT":   -4*hour,
		"BRST":  -2*hour,
		"BRT":   -3*hour,
		"BST":   6*hour,
		"BTT":   6*hour,
		"C":     3*hour,
		"CAST":  8*hour,
		"CAT":   2*hour,
		"CCT":   6*hour + 30*time.Minute,
		"CDT":   -5*hour,
		"CEST":  2*hour,
		"CET":   hour,
		"CHADT": 13*hour + 45*time.Minute,
		"CHAST": 12*hour + 45*time.Minute,
		"CHOST": 9*hour,
		"CHOT":  8*hour,
		"CHUT":  10*hour,
		"CIDST": -4*hour,
		"CIST":  -5*hour,
		"CKT":   -10*hour,
		"CLST":  -3*hour,
		"CLT":   -4*hour,
		"COT":   -5*hour,
		"CST":   -6*hour,
		"CT":    -6*hour,
		"CVT":   -hour,
		"CXT":   7*hour,
		"ChST":  10*hour,
		"D":     4*hour,
		"DAVT":  7*hour,
		"DDUT":  10*hour,
		"E":     5*hour,
		"EASST": -5*hour,
		"EAST":  -6*hour,
		"EAT":   3*hour,
		"ECT":   -5*hour,
		"EDT":   -4*hour,
		"EEST":  3*hour,
		"EET":   2*hour,
		"EGST":  0,
		"EGT":   -hour,
		"EST":   -5*hour,
		"ET":    -5*hour,
		"F":     6*hour,
		"FET":   3*hour,
		"FJST":  13*hour,
		"FJT":   12*hour,
		"FKST":  -3*hour,
		"FKT":   -4*hour,
		"FNT":   -2*hour,
		"G":     7*hour,
		"GALT":  -6*hour,
		"GAMT":  -9*hour,
		"GET":   4*hour,
		"GFT":   -3*hour,
		"GILT":  12*hour,
		"GMT":   0,
		"GST":   4*hour,
		"GYT":   -4*hour,
		"H":     8*hour,
		"HDT":   -9*hour,
		"HKT":   8*hour,
		"HOVST": 8*hour,
		"HOVT":  7*hour,
		"HST":   -10*hour,
		"I":     9*hour,
		"ICT":   7*hour,
		"IDT":   3*hour,
		"IOT":   6*hour,
		"IRDT":  4*hour + 30*time.Minute,
		"IRKST": 9*hour,
		"IRKT":  8*hour,
		"IRST":  3*hour + 30*time.Minute,
		"IST":   5*hour + 30*time.Minute,
		"JST":   9*hour,
		"K":     10*hour,
		"KGT":   6*hour,
		"KOST":  11*hour,
		"KRAST": 8*hour,
		"KRAT":  7*hour,
		"KST":   9*hour,
		"KUYT":  4*hour,
		"L":     11*hour,
		"LHDT":  11*hour,
		"LHST":  10*hour + 30*time.Minute,
		"LINT":  14*hour,
		"M":     12*hour,
		"MAGST": 12*hour,
		"MAGT":  11*hour,
		"MART":  9*hour + 30*time.Minute,
		"MAWT":  5*hour,
		"MDT":   -6*hour,
		"MHT":   12*hour,
		"MMT":   6*hour + 30*time.Minute,
		"MSD":   4*hour,
		"MSK":   3*hour,
		"MST":   -7*hour,
		"MT":    -7*hour,
		"MUT":   4*hour,
		"MVT":   5*hour,
		"MYT":   8*hour,
		"N":     -hour,
		"NCT":   11*hour,
		"NDT":   2*hour + 30*time.Minute,
		"NFT":   11*hour,
		"NOVST": 7*hour,
		"NOVT":  7*hour,
		"NPT":   5*hour + 30*time.Minute,
		"NRT":   12*hour,
		"NST":   3*hour + 30*time.Minute,
		"NUT":   -11*hour,
		"NZDT":  13*hour,
		"NZST":  12*hour,
		"O":     -2*hour,
		"OMSST": 7*hour,
		"OMST":  6*hour,
		"ORAT":  5*hour,
		"P":     -3*hour,
		"PDT":   -7*hour,
		"PET":   -5*hour,
		"PETST": 12*hour,
		"PETT":  12*hour,
		"PGT":   10*hour,
		"PHOT":  13*hour,
		"PHT":   8*hour,
		"PKT":   5*hour,
		"PMDT":  -2*hour,
		"PMST":  -3*hour,
		"PONT":  11*hour,
		"PST":   -8*hour,
		"PT":    -8*hour,
		"PWT":   9*hour,
		"PYST":  -3*hour,
		"PYT":   -4*hour,
		"Q":     -4*hour,
		"QYZT":  6*hour,
		"R":     -5*hour,
		"RET":   4*hour,
		"ROTT":  -3*hour,
		"S":     -6*hour,
		"SAKT":  11*hour,
		"SAMT":  4*hour,
		"SAST":  2*hour,
		"SBT":   11*hour,
		"SCT":   4*hour,
		"SGT":   8*hour,
		"SRET":  11*hour,
		"SRT":   -3*hour,
		"SST":   -11*hour,
		"SYOT":  3*hour,
		"T":     -7*hour,
		"TAHT":  -10*hour,
		"TFT":   5*hour,
		"TJT":   5*hour,
		"TKT":   13*hour,
		"TLT":   9*hour,
		"TMT":   5*hour,
		"TOST":  14*hour,
		"TOT":   13*hour,
		"TRT":   3*hour,
		"TVT":   12*hour,
		"U":     -8*hour,
		"ULAST": 9*hour,
		"ULAT":  8*hour,
		"UTC":   0,
		"UYST":  -2*hour,
		"UYT":   -3*hour,
		"UZT":   5*hour,
		"V":     -9*hour,
		"VET":   -4*hour,
		"VLAST": 11*hour,
		"VLAT":  10*hour,
		"VOST":  6*hour,
		"VUT":   11*hour,
		"W":     -10*hour,
		"WAKT":  12*hour,
		"WARST": -3*hour,
		"WAST":  2*hour,
		"WAT":   hour,
		"WEST":  hour,
		"WET":   0,
		"WFT":   12*hour,
		"WGST":  -2*hour,
		"WGT":   -3*hour,
		"WIB":   7*hour,
		"WIT":   9*hour,
		"WITA":  8*hour,
		"WST":   14*hour,
		"WT":    0,
		"X":     -11*hour,
		"Y":     -12*hour,
		"YAKST": 10*hour,
		"YAKT":  9*hour,
		"YAPT":  10*hour,
		"YEKST": 6*hour,
		"YEKT":  5*hour,
		"Z":     0,
	}
}

// Lookup returns the offset registered for abbr.
func (o Offsets) Lookup(abbr string) (time.Duration, bool) {
	d, ok := o[abbr]
	return d, ok
}
