package domain

// SubDevice — одно устройство внутри многоустройственного IOC.
type SubDevice struct {
	// Name — имя устройства. Итоговый ключ в реестре: {spec_name}_{name}.
	Name string `yaml:"name" json:"name"`

	// Attributes — дополнительные атрибуты устройства (poi и т.п.).
	Attributes Params `yaml:",inline" json:"attributes,omitempty"`
}

// DeviceSpec — описание устройства из конфигурации beamline.
//
// Пара (Group, Type) определяет конструктор в реестре устройств.
// Spec без зарегистрированного конструктора — не ошибка: устройство
// просто не будет создано.
type DeviceSpec struct {
	// Name — логическое имя (имя IOC).
	Name string `yaml:"name" json:"name"`

	// Group — группа устройств: mot, diag, mag и т.д.
	Group string `yaml:"devgroup" json:"devgroup"`

	// Type — тип внутри группы: tml, bpm, sim и т.д.
	Type string `yaml:"devtype" json:"devtype"`

	// Prefix — префикс каналов устройства.
	Prefix string `yaml:"iocprefix,omitempty" json:"iocprefix,omitempty"`

	// Disable — устройство выключено в конфигурации и пропускается.
	Disable bool `yaml:"disable,omitempty" json:"disable,omitempty"`

	// Devices — вложенные устройства для многоустройственных IOC.
	// Если список пуст, spec описывает одно устройство с ключом Name.
	Devices []SubDevice `yaml:"devices,omitempty" json:"devices,omitempty"`

	// Attributes — групп-специфичные атрибуты.
	Attributes Params `yaml:",inline" json:"attributes,omitempty"`
}
