package domain

// VarType — семантический тип переменной.
type VarType string

// Поддерживаемые типы переменных.
const (
	VarFloat  VarType = "float"
	VarInt    VarType = "int"
	VarString VarType = "string"
	VarBool   VarType = "bool"
)

// TaskMode — режим выполнения задачи.
type TaskMode string

const (
	// ModeContinuous — непрерывный цикл: логика выполняется каждую итерацию,
	// CYCLE_COUNT инкрементируется.
	ModeContinuous TaskMode = "continuous"

	// ModeTriggered — однократное выполнение по триггеру RUN.
	ModeTriggered TaskMode = "triggered"
)

// Зарезервированные имена встроенных переменных.
//
// Каждый экземпляр задачи объявляет их автоматически; пользовательские
// переменные не могут использовать эти имена.
const (
	BuiltinEnable     = "ENABLE"
	BuiltinStatus     = "STATUS"
	BuiltinMessage    = "MESSAGE"
	BuiltinCycleCount = "CYCLE_COUNT"
	BuiltinRun        = "RUN"
)

// ReservedNames возвращает список зарезервированных имён переменных.
func ReservedNames() []string {
	return []string{BuiltinEnable, BuiltinStatus, BuiltinMessage, BuiltinCycleCount, BuiltinRun}
}

// IsReservedName проверяет, является ли имя зарезервированным.
func IsReservedName(name string) bool {
	switch name {
	case BuiltinEnable, BuiltinStatus, BuiltinMessage, BuiltinCycleCount, BuiltinRun:
		return true
	default:
		return false
	}
}

// VariableSpec — описание одной process variable задачи.
type VariableSpec struct {
	// Name — имя переменной, уникальное в пределах задачи.
	Name string `yaml:"name" json:"name"`

	// Type — семантический тип значения.
	Type VarType `yaml:"type" json:"type"`

	// Initial — начальное значение.
	Initial any `yaml:"value" json:"value"`

	// Unit — единица измерения (EGU), опционально.
	Unit string `yaml:"unit,omitempty" json:"unit,omitempty"`

	// Precision — число знаков после запятой для отображения.
	Precision int `yaml:"prec,omitempty" json:"prec,omitempty"`

	// Low, High — границы отображения.
	Low  float64 `yaml:"low,omitempty" json:"low,omitempty"`
	High float64 `yaml:"high,omitempty" json:"high,omitempty"`

	// States — имена состояний для булевых/мультистатусных переменных
	// (например, ["Off", "On"]).
	States []string `yaml:"states,omitempty" json:"states,omitempty"`
}

// TaskDescriptor — статическое описание задачи.
//
// Загружается из конфигурации и неизменяем после загрузки.
// Один descriptor порождает ровно один экземпляр задачи.
type TaskDescriptor struct {
	// Name — уникальное имя задачи. Используется как префикс
	// публикуемых переменных: {TASK_NAME}:{VARIABLE_NAME}.
	Name string `yaml:"name" json:"name"`

	// Module — имя поведения в реестре behaviors.
	Module string `yaml:"module" json:"module"`

	// Mode — режим выполнения (continuous/triggered).
	Mode TaskMode `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Parameters — свободные параметры задачи из конфигурации.
	Parameters Params `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// Inputs — переменные, записываемые извне (входы задачи).
	Inputs []VariableSpec `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	// Outputs — переменные, записываемые логикой задачи.
	Outputs []VariableSpec `yaml:"outputs,omitempty" json:"outputs,omitempty"`

	// Devices — имена устройств, которые задача хочет получить из реестра.
	// Неразрешённые имена не являются ошибкой.
	Devices []string `yaml:"devices,omitempty" json:"devices,omitempty"`
}

// EffectiveMode возвращает режим задачи с учётом значения по умолчанию.
func (d TaskDescriptor) EffectiveMode() TaskMode {
	if d.Mode == ModeTriggered {
		return ModeTriggered
	}
	return ModeContinuous
}

// VariableCount возвращает полное число переменных экземпляра:
// объявленные входы и выходы плюс пять встроенных.
func (d TaskDescriptor) VariableCount() int {
	return len(d.Inputs) + len(d.Outputs) + len(ReservedNames())
}
