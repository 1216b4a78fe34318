package device

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

// Request — входные данные конструктора устройства.
type Request struct {
	// Name — итоговое имя устройства (ключ в реестре).
	Name string

	// Prefix — префикс каналов устройства.
	Prefix string

	// Group, Type — пара, по которой выбран конструктор.
	Group string
	Type  string

	// Attributes — групп-специфичные атрибуты из конфигурации.
	Attributes domain.Params
}

// Constructor создаёт устройство по его описанию.
type Constructor func(req Request) (Handle, error)

// Warning — одно предупреждение, накопленное при Build.
// Сбой конструирования никогда не прерывает построение реестра.
type Warning struct {
	// Device — имя устройства, которое не удалось создать.
	Device string

	// Group, Type — пара из spec.
	Group string
	Type  string

	// Err — причина (nil, если конструктор просто не зарегистрирован).
	Err error
}

func (w Warning) String() string {
	if w.Err != nil {
		return fmt.Sprintf("device %s (%s/%s): %v", w.Device, w.Group, w.Type, w.Err)
	}
	return fmt.Sprintf("device %s: no constructor for %s/%s", w.Device, w.Group, w.Type)
}

// ctorKey — ключ реестра конструкторов.
type ctorKey struct {
	group string
	typ   string
}

// Registry — реестр устройств.
//
// Жизненный цикл: Register* → Build → только чтение.
// После Build конкурентные Get не требуют синхронизации сверх
// внутреннего RLock.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	ctors   map[ctorKey]Constructor
	devices map[string]Handle
	built   bool
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		ctors:   make(map[ctorKey]Constructor),
		devices: make(map[string]Handle),
	}
}

// Register регистрирует конструктор для пары (group, type).
// Допустимо только до Build.
func (r *Registry) Register(group, typ string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.built {
		return ErrAlreadyBuilt
	}

	key := ctorKey{group: group, typ: typ}
	if _, exists := r.ctors[key]; exists {
		return fmt.Errorf("%w: %s/%s", ErrConstructorRegistered, group, typ)
	}

	r.ctors[key] = ctor
	r.logger.Debug("registered device constructor", "group", group, "type", typ)
	return nil
}

// Build строит устройства из описаний конфигурации.
//
// Политика: для каждого spec вызывается конструктор по (group, type);
// если его нет — пробуется (group, "generic"); если и его нет либо
// конструктор вернул ошибку, устройство пропускается с предупреждением.
// Build никогда не возвращает ошибку из-за отдельного устройства.
//
// Многоустройственные spec дают составные ключи {spec_name}_{device_name}.
func (r *Registry) Build(specs []domain.DeviceSpec) (map[string]Handle, []Warning) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var warnings []Warning

	for i := range specs {
		spec := &specs[i]

		if spec.Name == "" {
			continue
		}
		if spec.Disable {
			r.logger.Debug("skipping disabled device spec", "name", spec.Name)
			continue
		}
		if spec.Group == "" {
			r.logger.Debug("device spec has no group, skipping", "name", spec.Name)
			continue
		}

		if len(spec.Devices) == 0 {
			r.buildOne(spec, Request{
				Name:       spec.Name,
				Prefix:     spec.Prefix,
				Group:      spec.Group,
				Type:       spec.Type,
				Attributes: spec.Attributes,
			}, &warnings)
			continue
		}

		for j := range spec.Devices {
			sub := &spec.Devices[j]
			if sub.Name == "" {
				continue
			}
			r.buildOne(spec, Request{
				Name:       spec.Name + "_" + sub.Name,
				Prefix:     spec.Prefix + ":" + sub.Name,
				Group:      spec.Group,
				Type:       spec.Type,
				Attributes: sub.Attributes,
			}, &warnings)
		}
	}

	r.built = true

	result := make(map[string]Handle, len(r.devices))
	for name, h := range r.devices {
		result[name] = h
	}

	r.logger.Info("device registry built",
		"devices", len(r.devices),
		"warnings", len(warnings),
	)
	return result, warnings
}

// buildOne создаёт одно устройство. Вызывается под r.mu.
func (r *Registry) buildOne(spec *domain.DeviceSpec, req Request, warnings *[]Warning) {
	ctor, ok := r.ctors[ctorKey{group: req.Group, typ: req.Type}]
	if !ok {
		// Fallback на generic-конструктор группы.
		ctor, ok = r.ctors[ctorKey{group: req.Group, typ: "generic"}]
	}
	if !ok {
		w := Warning{Device: req.Name, Group: req.Group, Type: req.Type}
		*warnings = append(*warnings, w)
		r.logger.Warn("no device constructor registered",
			"device", req.Name,
			"group", req.Group,
			"type", req.Type,
		)
		return
	}

	handle, err := ctor(req)
	if err != nil {
		w := Warning{Device: req.Name, Group: req.Group, Type: req.Type,
			Err: fmt.Errorf("%w: %v", ErrConstruction, err)}
		*warnings = append(*warnings, w)
		r.logger.Warn("device construction failed",
			"device", req.Name,
			"group", req.Group,
			"type", req.Type,
			"error", err,
		)
		return
	}

	r.devices[req.Name] = handle
	r.logger.Info("created device",
		"device", req.Name,
		"group", req.Group,
		"type", req.Type,
		"prefix", req.Prefix,
	)
}

// Get возвращает устройство по имени.
func (r *Registry) Get(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.devices[name]
	return h, ok
}

// Names возвращает отсортированный список имён устройств.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.devices))
	for name := range r.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len возвращает число созданных устройств.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
