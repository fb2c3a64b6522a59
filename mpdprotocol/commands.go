package mpdprotocol

import (
	"slices"
	"strings"
)

// knownCommands lists the protocol commands offered for completion and
// listed by the shell's help. The server remains the authority: unknown
// commands are still sent and answered with ACK.
var knownCommands = []string{
	"add",
	"addid",
	"addtagid",
	"albumart",
	"binarylimit",
	"channels",
	"clear",
	"clearerror",
	"cleartagid",
	"close",
	"command_list_begin",
	"command_list_end",
	"command_list_ok_begin",
	"commands",
	"config",
	"consume",
	"count",
	"crossfade",
	"currentsong",
	"decoders",
	"delete",
	"deleteid",
	"delpartition",
	"disableoutput",
	"enableoutput",
	"find",
	"findadd",
	"getfingerprint",
	"getvol",
	"idle",
	"kill",
	"list",
	"listall",
	"listallinfo",
	"listfiles",
	"listmounts",
	"listneighbors",
	"listpartitions",
	"listplaylist",
	"listplaylistinfo",
	"listplaylists",
	"load",
	"lsinfo",
	"mixrampdb",
	"mixrampdelay",
	"mount",
	"move",
	"moveid",
	"moveoutput",
	"newpartition",
	"next",
	"noidle",
	"notcommands",
	"outputs",
	"outputset",
	"partition",
	"password",
	"pause",
	"ping",
	"play",
	"playid",
	"playlist",
	"playlistadd",
	"playlistclear",
	"playlistdelete",
	"playlistfind",
	"playlistid",
	"playlistinfo",
	"playlistlength",
	"playlistmove",
	"playlistsearch",
	"plchanges",
	"plchangesposid",
	"previous",
	"prio",
	"prioid",
	"protocol",
	"random",
	"rangeid",
	"readcomments",
	"readmessages",
	"readpicture",
	"rename",
	"repeat",
	"replay_gain_mode",
	"replay_gain_status",
	"rescan",
	"rm",
	"save",
	"search",
	"searchadd",
	"searchaddpl",
	"searchcount",
	"searchplaylist",
	"seek",
	"seekcur",
	"seekid",
	"sendmessage",
	"setvol",
	"shuffle",
	"single",
	"stats",
	"status",
	"sticker",
	"stickernames",
	"stickertypes",
	"stop",
	"subscribe",
	"swap",
	"swapid",
	"tagtypes",
	"toggleoutput",
	"unmount",
	"unsubscribe",
	"update",
	"urlhandlers",
	"volume",
}

// KnownCommands returns the sorted command table.
func KnownCommands() []string {
	return slices.Clone(knownCommands)
}

// IsKnownCommand reports whether the first word of line is in the table.
func IsKnownCommand(line string) bool {
	_, found := slices.BinarySearch(knownCommands, strings.ToLower(commandName(line)))
	return found
}
