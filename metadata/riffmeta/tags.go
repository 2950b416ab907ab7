package riffmeta

// InfoTags maps the four character tags of the LIST INFO chunk to
// human readable key names. See
// https://exiftool.org/TagNames/RIFF.html#Info for valid info tags.
var InfoTags = map[string]string{
	"AGES": "Rated",
	"CMNT": "Comment",
	"CODE": "EncodedBy",
	"COMM": "Comments",
	"DIRC": "Directory",
	"DISP": "SoundSchemeTitle",
	"DTIM": "DateTimeOriginal",
	"GENR": "Genre",
	"IARL": "ArchivalLocation",
	"IART": "Artist",
	"IAS1": "FirstLanguage",
	"IAS2": "SecondLanguage",
	"IAS3": "ThirdLanguage",
	"IAS4": "FourthLanguage",
	"IAS5": "FifthLanguage",
	"IAS6": "SixthLanguage",
	"IAS7": "SeventhLanguage",
	"IAS8": "EighthLanguage",
	"IAS9": "NinthLanguage",
	"IBSU": "BaseURL",
	"ICAS": "DefaultAudioStream",
	"ICDS": "ConstumeDesigner",
	"ICMS": "Commissioned",
	"ICMT": "Comment",
	"ICNM": "Cinematographer",
	"ICNT": "Country",
	"ICOP": "Copyright",
	"ICRD": "DateCreated",
	"ICRP": "Cropped",
	"IDIM": "Dimensions",
	"IDIT": "DateTimeOriginal",
	"IDPI": "DotsPerInch",
	"IDST": "DistributedBy",
	"IEDT": "EditedBy",
	"IENC": "EncodedBy",
	"IENG": "Engineer",
	"IGNR": "Genre",
	"IKEY": "Keywords",
	"ILGT": "Lightness",
	"ILGU": "LogoURL",
	"ILIU": "LogoIconURL",
	"ILNG": "Language",
	"IMBI": "MoreInfoBannerImage",
	"IMBU": "MoreInfoBannerURL",
	"IMED": "Medium",
	"IMIT": "MoreInfoText",
	"IMIU": "MoreInfoURL",
	"IMUS": "MusicBy",
	"INAM": "Title",
	"IPDS": "ProductionDesigner",
	"IPLT": "NumColors",
	"IPRD": "Product",
	"IPRO": "ProducedBy",
	"IRIP": "RippedBy",
	"IRTD": "Rating",
	"ISBJ": "Subject",
	"ISFT": "Software",
	"ISGN": "SecondaryGenre",
	"ISHP": "Sharpness",
	"ISMP": "TimeCode",
	"ISRC": "Source",
	"ISRF": "SourceFrom",
	"ISTD": "ProductionStudio",
	"ISTR": "Starring",
	"ITCH": "Technician",
	"ITRK": "TrackNumber",
	"IWMU": "WatermarkURL",
	"IWRI": "WrittenBy",
	"LANG": "Language",
	"LOCA": "Location",
	"PRT1": "Part",
	"PRT2": "NumberOfParts",
	"RATE": "Rate",
	"STAT": "Statistics",
	"TAPE": "TapeName",
	"TCDO": "EndTimecode",
	"TCOD": "StartTimecode",
	"TITL": "Title",
	"TLEN": "Length",
	"TORG": "Organization",
	"TRCK": "TrackNumber",
	"TURL": "URL",
	"TVER": "Version",
	"VMAJ": "VegasVersionMajor",
	"VMIN": "VegasVersionMinor",
	"YEAR": "Year",
	// extensions from TeeGrid recorders:
	"BITS": "Bits",
	"PINS": "Pins",
	"AVRG": "Averaging",
	"CNVS": "ConversionSpeed",
	"SMPS": "SamplingSpeed",
	"VREF": "ReferenceVoltage",
	"GAIN": "Gain",
	"UWRP": "UnwrapThreshold",
	"UWPC": "UnwrapClippedAmplitude",
	"IBRD": "uCBoard",
	"IMAC": "MACAdress",
}

// infoKeys maps human readable key names back to INFO tags.
var infoKeys = func() map[string]string {
	m := make(map[string]string, len(InfoTags))
	for tag, name := range InfoTags {
		m[name] = tag
	}
	return m
}()

// bextField is one field of the broadcast-audio extension chunk with
// its fixed size in bytes. A size of zero marks the variable length
// CodingHistory at the end of the chunk. See
// https://tech.ebu.ch/docs/tech/tech3285.pdf for the specification.
type bextField struct {
	name string
	size int
}

var bextFields = []bextField{
	{"Description", 256},
	{"Originator", 32},
	{"OriginatorReference", 32},
	{"OriginationDate", 10},
	{"OriginationTime", 8},
	{"TimeReference", 8},
	{"Version", 2},
	{"UMID", 64},
	{"LoudnessValue", 2},
	{"LoudnessRange", 2},
	{"MaxTruePeakLevel", 2},
	{"MaxMomentaryLoudness", 2},
	{"MaxShortTermLoudness", 2},
	{"Reserved", 180},
	{"CodingHistory", 0},
}

// isBextTag reports whether name is a valid BEXT field name.
func isBextTag(name string) bool {
	for _, f := range bextFields {
		if f.name == name {
			return true
		}
	}
	return false
}

// ixmlTags holds the valid tags of the iXML chunk. See
// http://www.gallery.co.uk/ixml/ for the specification.
var ixmlTags = map[string]bool{
	"BWFXML":                              true,
	"IXML_VERSION":                        true,
	"PROJECT":                             true,
	"SCENE":                               true,
	"TAPE":                                true,
	"TAKE":                                true,
	"TAKE_TYPE":                           true,
	"NO_GOOD":                             true,
	"FALSE_START":                         true,
	"WILD_TRACK":                          true,
	"CIRCLED":                             true,
	"FILE_UID":                            true,
	"UBITS":                               true,
	"NOTE":                                true,
	"SYNC_POINT_LIST":                     true,
	"SYNC_POINT_COUNT":                    true,
	"SYNC_POINT":                          true,
	"SYNC_POINT_TYPE":                     true,
	"SYNC_POINT_FUNCTION":                 true,
	"SYNC_POINT_COMMENT":                  true,
	"SYNC_POINT_LOW":                      true,
	"SYNC_POINT_HIGH":                     true,
	"SYNC_POINT_EVENT_DURATION":           true,
	"SPEED":                               true,
	"MASTER_SPEED":                        true,
	"CURRENT_SPEED":                       true,
	"TIMECODE_RATE":                       true,
	"TIMECODE_FLAGS":                      true,
	"FILE_SAMPLE_RATE":                    true,
	"AUDIO_BIT_DEPTH":                     true,
	"DIGITIZER_SAMPLE_RATE":               true,
	"TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_HI": true,
	"TIMESTAMP_SAMPLES_SINCE_MIDNIGHT_LO": true,
	"TIMESTAMP_SAMPLE_RATE":               true,
	"LOUDNESS":                            true,
	"LOUDNESS_VALUE":                      true,
	"LOUDNESS_RANGE":                      true,
	"MAX_TRUE_PEAK_LEVEL":                 true,
	"MAX_MOMENTARY_LOUDNESS":              true,
	"MAX_SHORT_TERM_LOUDNESS":             true,
	"HISTORY":                             true,
	"ORIGINAL_FILENAME":                   true,
	"PARENT_FILENAME":                     true,
	"PARENT_UID":                          true,
	"FILE_SET":                            true,
	"TOTAL_FILES":                         true,
	"FAMILY_UID":                          true,
	"FAMILY_NAME":                         true,
	"FILE_SET_INDEX":                      true,
	"TRACK_LIST":                          true,
	"TRACK_COUNT":                         true,
	"TRACK":                               true,
	"CHANNEL_INDEX":                       true,
	"INTERLEAVE_INDEX":                    true,
	"NAME":                                true,
	"FUNCTION":                            true,
	"PRE_RECORD_SAMPLECOUNT":              true,
	"BEXT":                                true,
	"BWF_DESCRIPTION":                     true,
	"BWF_ORIGINATOR":                      true,
	"BWF_ORIGINATOR_REFERENCE":            true,
	"BWF_ORIGINATION_DATE":                true,
	"BWF_ORIGINATION_TIME":                true,
	"BWF_TIME_REFERENCE_LOW":              true,
	"BWF_TIME_REFERENCE_HIGH":             true,
	"BWF_VERSION":                         true,
	"BWF_UMID":                            true,
	"BWF_RESERVED":                        true,
	"BWF_CODING_HISTORY":                  true,
	"BWF_LOUDNESS_VALUE":                  true,
	"BWF_LOUDNESS_RANGE":                  true,
	"BWF_MAX_TRUE_PEAK_LEVEL":             true,
	"BWF_MAX_MOMENTARY_LOUDNESS":          true,
	"BWF_MAX_SHORT_TERM_LOUDNESS":         true,
	"USER":                                true,
	"FULL_TITLE":                          true,
	"DIRECTOR_NAME":                       true,
	"PRODUCTION_NAME":                     true,
	"PRODUCTION_ADDRESS":                  true,
	"PRODUCTION_EMAIL":                    true,
	"PRODUCTION_PHONE":                    true,
	"PRODUCTION_NOTE":                     true,
	"SOUND_MIXER_NAME":                    true,
	"SOUND_MIXER_ADDRESS":                 true,
	"SOUND_MIXER_EMAIL":                   true,
	"SOUND_MIXER_PHONE":                   true,
	"SOUND_MIXER_NOTE":                    true,
	"AUDIO_RECORDER_MODEL":                true,
	"AUDIO_RECORDER_SERIAL_NUMBER":        true,
	"AUDIO_RECORDER_FIRMWARE":             true,
	"LOCATION":                            true,
	"LOCATION_NAME":                       true,
	"LOCATION_GPS":                        true,
	"LOCATION_ALTITUDE":                   true,
	"LOCATION_TYPE":                       true,
	"LOCATION_TIME":                       true,
}
