package event

// CommandType is the type tag at the head of every encoded command.
type CommandType int32

const (
	CommandNull CommandType = iota
	CommandShowText
	CommandShowOptions
	CommandAddChatboxText
	CommandSetSwitch
	CommandSetVariable
	CommandSetSelfSwitch
	CommandConditionalBranch
	CommandExitEventProcess
	CommandLabel
	CommandGoToLabel
	CommandStartCommonEvent
	CommandRestoreHp
	CommandRestoreMp
	CommandLevelUp
	CommandGiveExperience
	CommandChangeLevel
	CommandChangeSpells
	CommandChangeItems
	CommandChangeSprite
	CommandChangeFace
	CommandChangeGender
	CommandSetAccess
	CommandWarpPlayer
	CommandSetMoveRoute
	CommandWaitForRouteCompletion
	CommandHoldPlayer
	CommandReleasePlayer
	CommandSpawnNpc
	CommandPlayAnimation
	CommandPlayBgm
	CommandFadeoutBgm
	CommandPlaySound
	CommandStopSounds
	CommandShowPicture
	CommandHidePicture
	CommandWait
	CommandOpenBank
	CommandOpenShop
	CommandOpenCraftingBench
	CommandSetClass
	CommandDespawnNpc
)

var commandNames = map[CommandType]string{
	CommandNull:                   "Null",
	CommandShowText:               "ShowText",
	CommandShowOptions:            "ShowOptions",
	CommandAddChatboxText:         "AddChatboxText",
	CommandSetSwitch:              "SetSwitch",
	CommandSetVariable:            "SetVariable",
	CommandSetSelfSwitch:          "SetSelfSwitch",
	CommandConditionalBranch:      "ConditionalBranch",
	CommandExitEventProcess:       "ExitEventProcess",
	CommandLabel:                  "Label",
	CommandGoToLabel:              "GoToLabel",
	CommandStartCommonEvent:       "StartCommonEvent",
	CommandRestoreHp:              "RestoreHp",
	CommandRestoreMp:              "RestoreMp",
	CommandLevelUp:                "LevelUp",
	CommandGiveExperience:         "GiveExperience",
	CommandChangeLevel:            "ChangeLevel",
	CommandChangeSpells:           "ChangeSpells",
	CommandChangeItems:            "ChangeItems",
	CommandChangeSprite:           "ChangeSprite",
	CommandChangeFace:             "ChangeFace",
	CommandChangeGender:           "ChangeGender",
	CommandSetAccess:              "SetAccess",
	CommandWarpPlayer:             "WarpPlayer",
	CommandSetMoveRoute:           "SetMoveRoute",
	CommandWaitForRouteCompletion: "WaitForRouteCompletion",
	CommandHoldPlayer:             "HoldPlayer",
	CommandReleasePlayer:          "ReleasePlayer",
	CommandSpawnNpc:               "SpawnNpc",
	CommandPlayAnimation:          "PlayAnimation",
	CommandPlayBgm:                "PlayBgm",
	CommandFadeoutBgm:             "FadeoutBgm",
	CommandPlaySound:              "PlaySound",
	CommandStopSounds:             "StopSounds",
	CommandShowPicture:            "ShowPicture",
	CommandHidePicture:            "HidePicture",
	CommandWait:                   "Wait",
	CommandOpenBank:               "OpenBank",
	CommandOpenShop:               "OpenShop",
	CommandOpenCraftingBench:      "OpenCraftingBench",
	CommandSetClass:               "SetClass",
	CommandDespawnNpc:             "DespawnNpc",
}

// String returns the command name, or "Unknown" for tags outside the table.
func (t CommandType) String() string {
	if name, ok := commandNames[t]; ok {
		return name
	}
	return "Unknown"
}

// MoveRouteActionType is the type tag of one step in a MoveRoute.
type MoveRouteActionType int32

const (
	MoveUp MoveRouteActionType = iota + 1
	MoveDown
	MoveLeft
	MoveRight
	MoveRandomly
	MoveTowardsPlayer
	MoveAwayFromPlayer
	StepForward
	StepBack
	FaceUp
	FaceDown
	FaceLeft
	FaceRight
	Turn90Clockwise
	Turn90CounterClockwise
	Turn180
	TurnRandomly
	FacePlayer
	FaceAwayFromPlayer
	SetSpeedSlowest
	SetSpeedSlower
	SetSpeedNormal
	SetSpeedFaster
	SetSpeedFastest
	SetFreqLowest
	SetFreqLower
	SetFreqNormal
	SetFreqHigher
	SetFreqHighest
	WalkingAnimOn
	WalkingAnimOff
	DirectionFixOn
	DirectionFixOff
	WalkthroughOn
	WalkthroughOff
	ShowName
	HideName
	SetLevelBelow
	SetLevelNormal
	SetLevelAbove
	Wait100
	Wait500
	Wait1000
	SetGraphic
	SetAnimation
)
